package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// Client stores analysis pages through the Notion API.
type Client struct {
	api *notionapi.Client
}

// NewClient authenticates with an integration token.
func NewClient(token string) *Client {
	return &Client{api: notionapi.NewClient(notionapi.Token(token))}
}

// FindPage filters the database on the Analysis ID rich-text property.
func (c *Client) FindPage(ctx context.Context, databaseID, analysisID string) (string, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropAnalysisID,
			RichText: &notionapi.TextFilterCondition{Equals: analysisID},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", fmt.Errorf("FindPage: querying %s: %w", databaseID, err)
	}
	for _, page := range resp.Results {
		if extractAnalysisID(page) == analysisID {
			return string(page.ID), nil
		}
	}
	return "", nil
}

func (c *Client) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (string, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: props,
	})
	if err != nil {
		return "", fmt.Errorf("CreatePage: %w", err)
	}
	return string(page.ID), nil
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Properties: props})
	if err != nil {
		return fmt.Errorf("UpdatePage: %s: %w", pageID, err)
	}
	return nil
}

var _ AnalysisPages = (*Client)(nil)
