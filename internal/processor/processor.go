// Package processor turns staged raw payloads into validated tabular records.
package processor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolosh/datapulse/internal/staging"
)

// Processor reads the latest staged payload per source, applies the
// per-source transformation rules, and writes processed CSVs, dated archive
// copies, and the run manifest.
type Processor struct {
	staging      *staging.Store
	processedDir string
	archiveDir   string
	manifestPath string
	validate     *validator.Validate
	log          *zerolog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

func New(st *staging.Store, processedDir, archiveDir, manifestPath string, log *zerolog.Logger) *Processor {
	return &Processor{
		staging:      st,
		processedDir: processedDir,
		archiveDir:   archiveDir,
		manifestPath: manifestPath,
		validate:     validator.New(),
		log:          log,
		now:          time.Now,
	}
}

// Run processes every named source that has staged data. Sources with no
// staged data, or whose staged file cannot be decoded, are skipped with a
// log entry; an empty staging area still
// produces a manifest (the explicit no-data state). Per-record validation
// failures drop the record, never the run.
func (p *Processor) Run(sources []string) (*Manifest, error) {
	m := &Manifest{
		RunID:       uuid.NewString(),
		GeneratedAt: p.now().UTC().Truncate(time.Second),
		Sources:     make(map[string]SourceOutput),
	}
	runstamp := m.GeneratedAt.Format("20060102_150405")

	for _, name := range sources {
		rec, err := p.staging.Latest(name)
		if err != nil {
			switch {
			case errors.Is(err, staging.ErrNoData):
				p.log.Warn().Str("source", name).Msg("no staged data, skipping")
				continue
			case errors.Is(err, staging.ErrCorruptData):
				p.log.Error().Str("source", name).Err(err).Msg("staged data unreadable, source skipped")
				continue
			default:
				return nil, err
			}
		}

		header, rows, err := p.transform(name, rec)
		if err != nil {
			p.log.Error().Str("source", name).Err(err).Msg("transform failed, source skipped")
			continue
		}

		path := filepath.Join(p.processedDir, fmt.Sprintf("%s_%s.csv", name, runstamp))
		if err := writeCSV(path, header, rows); err != nil {
			return nil, err
		}

		archivePath := filepath.Join(p.archiveDir,
			fmt.Sprintf("%s_%s.csv", name, m.GeneratedAt.Format("2006-01-02")))
		if err := copyFile(path, archivePath); err != nil {
			return nil, err
		}

		m.Sources[name] = SourceOutput{Path: path, Records: len(rows)}
		p.log.Info().Str("source", name).Int("records", len(rows)).
			Str("output", path).Msg("source processed")
	}

	if len(m.Sources) == 0 {
		p.log.Warn().Msg("no staged data for any source; writing empty manifest")
	}

	if err := WriteManifest(p.manifestPath, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Processor) transform(name string, rec staging.RawRecord) ([]string, [][]string, error) {
	switch name {
	case "github":
		records, err := p.TransformTrending(rec.Data)
		if err != nil {
			return nil, nil, err
		}
		return trendingHeader(), trendingRows(records), nil
	case "wttr", "openmeteo":
		records, err := p.TransformWeather(name, rec.Data)
		if err != nil {
			return nil, nil, err
		}
		return weatherHeader(), weatherRows(records), nil
	case "coingecko":
		records, err := p.TransformCrypto(rec.Data)
		if err != nil {
			return nil, nil, err
		}
		return cryptoHeader(), cryptoRows(records), nil
	default:
		return nil, nil, fmt.Errorf("no transformation rules for source %q", name)
	}
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("archive: create dir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("archive: copy to %s: %w", dst, err)
	}
	return nil
}
