package nntp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"newsdb/pkg/models"
)

// Over fetches overview rows for the selected group. low and high bound
// the article numbers inclusively; a high of 0 requests everything from
// low up. Rows the server garbles are logged and skipped rather than
// failing the whole range.
//
// The first call probes OVER and falls back to XOVER for pre-3977
// servers; the answer is remembered for the connection's lifetime.
func (c *Client) Over(ctx context.Context, low, high int64) ([]models.Article, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	spec := fmt.Sprintf("%d-%d", low, high)
	if high <= 0 {
		spec = fmt.Sprintf("%d-", low)
	}

	verb := c.overCmd
	if verb == "" {
		verb = "OVER"
	}
	_, _, err := c.cmd(ctx, 224, "%s %s", verb, spec)
	if err != nil && verb == "OVER" && c.overCmd == "" && errors.Is(err, ErrUnsupported) {
		verb = "XOVER"
		_, _, err = c.cmd(ctx, 224, "%s %s", verb, spec)
	}
	if err != nil {
		if errors.Is(err, ErrNoSuchArticle) {
			// nothing in range; an empty window is not a failure
			return nil, nil
		}
		return nil, err
	}
	c.overCmd = verb

	lines, err := c.text.ReadDotLines()
	if err != nil {
		return nil, err
	}
	out := make([]models.Article, 0, len(lines))
	for _, line := range lines {
		art, perr := parseOverview(line)
		if perr != nil {
			if c.opts.Logger != nil {
				c.opts.Logger.Warn("overview_row_garbled", "error", perr)
			}
			continue
		}
		out = append(out, art)
	}
	return out, nil
}

// parseOverview splits one tab-separated overview row:
//
//	number subject from date message-id references bytes lines
//
// Trailing fields are optional on lax servers; the first six are not.
func parseOverview(line string) (models.Article, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 6 {
		return models.Article{}, fmt.Errorf("overview row has %d fields: %q", len(fields), line)
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return models.Article{}, fmt.Errorf("overview row number %q: %w", fields[0], err)
	}
	art := models.Article{
		Number:    n,
		Subject:   fields[1],
		From:      fields[2],
		Date:      fields[3],
		MessageID: strings.TrimSpace(fields[4]),
		Refs:      models.ParseReferences(fields[5]),
	}
	if len(fields) > 6 && fields[6] != "" {
		art.Bytes, _ = strconv.ParseInt(fields[6], 10, 64)
	}
	if len(fields) > 7 && fields[7] != "" {
		art.Lines, _ = strconv.ParseInt(fields[7], 10, 64)
	}
	return art, nil
}

// ListActive returns the groups the server carries. A non-empty wildmat
// narrows the listing server-side.
func (c *Client) ListActive(ctx context.Context, wildmat string) ([]models.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if wildmat == "" {
		_, _, err = c.cmd(ctx, 215, "LIST ACTIVE")
	} else {
		_, _, err = c.cmd(ctx, 215, "LIST ACTIVE %s", wildmat)
	}
	if err != nil {
		return nil, err
	}
	lines, err := c.text.ReadDotLines()
	if err != nil {
		return nil, err
	}
	out := make([]models.Group, 0, len(lines))
	for _, line := range lines {
		// name high low status
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		var g models.Group
		g.Name = fields[0]
		g.High, _ = strconv.ParseInt(fields[1], 10, 64)
		g.Low, _ = strconv.ParseInt(fields[2], 10, 64)
		g.Posting = fields[3] == "y"
		out = append(out, g)
	}
	return out, nil
}

// ListNewsgroups returns group descriptions keyed by group name.
func (c *Client) ListNewsgroups(ctx context.Context, wildmat string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if wildmat == "" {
		_, _, err = c.cmd(ctx, 215, "LIST NEWSGROUPS")
	} else {
		_, _, err = c.cmd(ctx, 215, "LIST NEWSGROUPS %s", wildmat)
	}
	if err != nil {
		return nil, err
	}
	lines, err := c.text.ReadDotLines()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		name, desc, ok := strings.Cut(line, "\t")
		if !ok {
			name, desc, ok = strings.Cut(line, " ")
			if !ok {
				continue
			}
		}
		out[name] = strings.TrimSpace(desc)
	}
	return out, nil
}
