package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
)

const descriptionMaxLen = 100

// TrendingItem is the staged shape of one repository entry: fields extracted
// verbatim from the search response, no validation applied yet.
type TrendingItem struct {
	Name        string `json:"name"`
	Stars       int    `json:"stars"`
	Language    string `json:"language"`
	Description string `json:"description"`
	URL         string `json:"url"`
	UpdatedAt   string `json:"updated_at"`
}

// GitHubSource fetches the most-starred repositories from the GitHub search
// API. No auth is required for basic data; a token raises the rate limit.
type GitHubSource struct {
	name     string
	baseURL  string
	token    string
	minStars int
	limit    int
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
}

func NewGitHubSource(client *http.Client, token string, minStars, limit int) *GitHubSource {
	return &GitHubSource{
		name:     "github",
		baseURL:  "https://api.github.com/search/repositories",
		token:    token,
		minStars: minStars,
		limit:    limit,
		client:   client,
		circuit:  newBreaker("github"),
	}
}

func (s *GitHubSource) Name() string {
	return s.name
}

func (s *GitHubSource) Fetch(ctx context.Context) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("q", fmt.Sprintf("stars:>%d", s.minStars))
	values.Set("sort", "stars")
	values.Set("order", "desc")
	values.Set("per_page", strconv.Itoa(s.limit))

	req, err := http.NewRequest(http.MethodGet, s.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := doRequest(ctx, s.client, s.circuit, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Items []struct {
			FullName        string  `json:"full_name"`
			StargazersCount int     `json:"stargazers_count"`
			Language        *string `json:"language"`
			Description     *string `json:"description"`
			HTMLURL         string  `json:"html_url"`
			UpdatedAt       string  `json:"updated_at"`
		} `json:"items"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	items := make([]TrendingItem, 0, len(payload.Items))
	for i, repo := range payload.Items {
		if i >= s.limit {
			break
		}
		items = append(items, TrendingItem{
			Name:        repo.FullName,
			Stars:       repo.StargazersCount,
			Language:    stringOr(repo.Language, "N/A"),
			Description: truncate(stringOr(repo.Description, "No description"), descriptionMaxLen),
			URL:         repo.HTMLURL,
			UpdatedAt:   repo.UpdatedAt,
		})
	}

	return json.Marshal(items)
}

func stringOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

// truncate limits s to max characters, never splitting a multibyte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
