package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Collection is an addressable storage location registered with Globus.
type Collection struct {
	ID          uuid.UUID
	DisplayName string
	Host        string
}

// endpointDoc mirrors the Transfer API endpoint document. Unexported;
// callers get Collection via toCollection normalization.
type endpointDoc struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Servers     []serverDoc `json:"DATA"`
}

type serverDoc struct {
	Hostname string `json:"hostname"`
}

// searchResponse wraps the DATA array from endpoint_search.
type searchResponse struct {
	Data []endpointDoc `json:"DATA"`
}

// toCollection normalizes an endpoint document.
func (d *endpointDoc) toCollection() (Collection, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Collection{}, fmt.Errorf("transfer: endpoint has malformed ID %q: %w", d.ID, err)
	}

	host := ""
	if len(d.Servers) > 0 {
		host = d.Servers[0].Hostname
	}

	return Collection{
		ID:          id,
		DisplayName: d.DisplayName,
		Host:        host,
	}, nil
}

// RecentlyUsed returns up to limit recently-used collections for the
// authenticated user.
func (c *Client) RecentlyUsed(ctx context.Context, limit int) ([]Collection, error) {
	c.logger.Debug("searching recently-used collections", "limit", limit)

	var resp searchResponse

	path := fmt.Sprintf("/endpoint_search?filter_scope=recently-used&limit=%d", limit)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	collections := make([]Collection, 0, len(resp.Data))

	for i := range resp.Data {
		col, err := resp.Data[i].toCollection()
		if err != nil {
			return nil, err
		}

		collections = append(collections, col)
	}

	c.logger.Debug("collection search complete", "count", len(collections))

	return collections, nil
}

// Endpoint fetches a collection by its ID. Returns ErrNotFound when the ID
// does not resolve to an endpoint; the main use is validating user input.
func (c *Client) Endpoint(ctx context.Context, id uuid.UUID) (*Collection, error) {
	c.logger.Debug("fetching collection", "id", id.String())

	var doc endpointDoc
	if err := c.get(ctx, "/endpoint/"+id.String(), &doc); err != nil {
		return nil, err
	}

	col, err := doc.toCollection()
	if err != nil {
		return nil, err
	}

	return &col, nil
}
