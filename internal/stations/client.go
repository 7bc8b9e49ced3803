// Package stations reads the radio station directory and keeps the user's
// ordered station list with one active station.
package stations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// DefaultTimeout bounds one directory request.
const DefaultTimeout = 15 * time.Second

// ErrUnsuccessful is returned when the directory answers with
// success=false.
var ErrUnsuccessful = errors.New("stations: directory reported failure")

// Station is one playable stream.
type Station struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Src         string `json:"src"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	// Direct is the upstream stream address, if the directory lists one.
	// It is played when the proxy fails.
	Direct string `json:"direct,omitempty"`
}

// Category groups stations in the directory.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Directory is a normalized directory listing.
type Directory struct {
	Stations   []Station
	Categories []Category
	Total      int
}

type stationDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Src         string `json:"src"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type directoryResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Stations   []stationDTO `json:"stations"`
		Categories []Category   `json:"categories"`
		Total      int          `json:"total"`
	} `json:"data"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// Client talks to the directory API rooted at a base URL such as
// https://host/api.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for base.
func NewClient(base string, opts ...ClientOption) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ProxyURL is the stream address of station id.
func (c *Client) ProxyURL(id int) string {
	return c.base + "/proxy/" + strconv.Itoa(id)
}

// Fetch downloads the directory and resolves every station to its proxy
// URL.
func (c *Client) Fetch(ctx context.Context) (Directory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/stations", nil)
	if err != nil {
		return Directory{}, fmt.Errorf("stations: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Directory{}, fmt.Errorf("stations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Directory{}, fmt.Errorf("stations: HTTP %d", resp.StatusCode)
	}

	var body directoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Directory{}, fmt.Errorf("stations: decode: %w", err)
	}
	if !body.Success {
		return Directory{}, ErrUnsuccessful
	}

	return Directory{
		Stations: lo.Map(body.Data.Stations, func(s stationDTO, _ int) Station {
			return Station{
				ID:          s.ID,
				Name:        s.Name,
				Src:         c.ProxyURL(s.ID),
				Category:    s.Category,
				Description: s.Description,
				Direct:      s.Src,
			}
		}),
		Categories: body.Data.Categories,
		Total:      body.Data.Total,
	}, nil
}
