package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quickhitters/clubhouse/models"
)

// FeedClient reads the hosted tee sheet, a read-only JSON feed where each
// element is one row of the spreadsheet.
type FeedClient struct {
	feedURL    string
	httpClient *http.Client
}

func NewFeedClient(feedURL string) *FeedClient {
	return &FeedClient{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *FeedClient) FetchRows(ctx context.Context) ([]models.FeedRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed request failed - Status: %d, Body: %s", resp.StatusCode, string(body))
	}

	var reader io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	var raw []map[string]any
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	rows := make([]models.FeedRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, normalizeRow(r))
	}

	return rows, nil
}

func normalizeRow(raw map[string]any) models.FeedRow {
	row := models.FeedRow{
		RowID:  fieldByName(raw, "id"),
		Date:   fieldByName(raw, "Date"),
		Time:   fieldByName(raw, "Time"),
		Course: fieldByName(raw, "Course"),
	}

	for i := 1; i <= models.MaxPlayers; i++ {
		name := strings.TrimSpace(fieldByName(raw, "Player "+strconv.Itoa(i)))
		if name != "" {
			row.Players = append(row.Players, name)
		}
	}

	return row
}

// fieldByName tolerates the sheet's stray header spaces: revisions of the
// tee sheet have shipped both "Date" and "Date " as column names.
func fieldByName(raw map[string]any, name string) string {
	if v, ok := raw[name]; ok {
		return stringValue(v)
	}

	for k, v := range raw {
		if strings.TrimSpace(k) == name {
			return stringValue(v)
		}
	}

	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// Row ids come back as numbers on some sheet hosts.
		return strconv.FormatInt(int64(val), 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
