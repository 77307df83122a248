package memberstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/membersadmin/internal/app/system/normalize"
	"github.com/dalemusser/membersadmin/internal/domain/models"
)

// Axis is a point-search dimension.
type Axis string

const (
	AxisName   Axis = "name"
	AxisEmail  Axis = "email"
	AxisMobile Axis = "mobile"
)

// Search runs one point query against /members/search/{axis}. The backend
// matches case-insensitive substrings. A blank fragment returns an empty
// result without a request.
func (c *Client) Search(ctx context.Context, token string, axis Axis, fragment string) ([]models.Member, error) {
	switch axis {
	case AxisName, AxisEmail, AxisMobile:
	default:
		return nil, fmt.Errorf("unknown search axis %q", axis)
	}

	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return []models.Member{}, nil
	}

	u := c.cfg.APIBaseURL + "/members/search/" + string(axis) + "?" + url.Values{"q": {fragment}}.Encode()
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build search request: %v", ErrUnavailable, err)
	}

	var records []normalize.Record
	if err := c.do(ctx, token, req, &records); err != nil {
		return nil, err
	}
	return normalize.Members(records)
}

// SearchByName searches the name axis.
func (c *Client) SearchByName(ctx context.Context, token, fragment string) ([]models.Member, error) {
	return c.Search(ctx, token, AxisName, fragment)
}

// SearchByEmail searches the email axis.
func (c *Client) SearchByEmail(ctx context.Context, token, fragment string) ([]models.Member, error) {
	return c.Search(ctx, token, AxisEmail, fragment)
}

// SearchByMobile searches the mobile axis.
func (c *Client) SearchByMobile(ctx context.Context, token, fragment string) ([]models.Member, error) {
	return c.Search(ctx, token, AxisMobile, fragment)
}
