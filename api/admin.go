package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Admin back-office calls. These always carry the admin bearer token
// explicitly: the admin session is independent from the customer session
// and must never ride on the bound credential.

// AdminProduct is a catalog entry as the back office sees it.
type AdminProduct struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description,omitempty"`
	MediaURL    *string    `json:"mediaUrl,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Grant is a per-user product entitlement.
type Grant struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	ProductID string     `json:"productId"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// AdminUser is a row in the back-office user listing.
type AdminUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListProducts returns the full catalog.
func (c *Client) ListProducts(ctx context.Context, tok string) ([]AdminProduct, error) {
	if tok == "" {
		return nil, &Error{Code: CodeMissingAdminToken}
	}
	var resp struct {
		Products []AdminProduct `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/products", nil, &resp, tok); err != nil {
		return nil, errors.Wrap(err, "[ListProducts] request failed")
	}
	return resp.Products, nil
}

// CreateProduct creates a catalog entry from the given payload.
func (c *Client) CreateProduct(ctx context.Context, tok string, payload AdminProduct) (*AdminProduct, error) {
	if tok == "" {
		return nil, &Error{Code: CodeMissingAdminToken}
	}
	var resp struct {
		Product AdminProduct `json:"product"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/products", payload, &resp, tok); err != nil {
		return nil, errors.Wrap(err, "[CreateProduct] request failed")
	}
	return &resp.Product, nil
}

// UpdateProduct applies a partial update to a catalog entry.
func (c *Client) UpdateProduct(ctx context.Context, tok, id string, patch AdminProduct) (*AdminProduct, error) {
	if tok == "" {
		return nil, &Error{Code: CodeMissingAdminToken}
	}
	var resp struct {
		Product AdminProduct `json:"product"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/admin/products/"+url.PathEscape(id), patch, &resp, tok); err != nil {
		return nil, errors.Wrap(err, "[UpdateProduct] request failed")
	}
	return &resp.Product, nil
}

// DeleteProduct removes a catalog entry.
func (c *Client) DeleteProduct(ctx context.Context, tok, id string) error {
	if tok == "" {
		return &Error{Code: CodeMissingAdminToken}
	}
	if err := c.do(ctx, http.MethodDelete, "/api/admin/products/"+url.PathEscape(id), nil, nil, tok); err != nil {
		return errors.Wrap(err, "[DeleteProduct] request failed")
	}
	return nil
}

// ListGrants returns entitlements, optionally filtered by user email.
func (c *Client) ListGrants(ctx context.Context, tok, email string) ([]Grant, error) {
	if tok == "" {
		return nil, &Error{Code: CodeMissingAdminToken}
	}
	path := "/api/admin/grants"
	if email != "" {
		path += "?email=" + url.QueryEscape(email)
	}
	var resp struct {
		Grants []Grant `json:"grants"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, tok); err != nil {
		return nil, errors.Wrap(err, "[ListGrants] request failed")
	}
	return resp.Grants, nil
}

// GrantAccess entitles email to productID, optionally until expiresAt.
func (c *Client) GrantAccess(ctx context.Context, tok, email, productID string, expiresAt *time.Time) (*Grant, error) {
	if tok == "" {
		return nil, &Error{Code: CodeMissingAdminToken}
	}
	body := map[string]any{"email": email, "productId": productID}
	if expiresAt != nil {
		body["expiresAt"] = expiresAt
	}
	var resp struct {
		Grant Grant `json:"grant"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/grants", body, &resp, tok); err != nil {
		return nil, errors.Wrap(err, "[GrantAccess] request failed")
	}
	return &resp.Grant, nil
}

// RevokeAccess removes email's entitlement to productID.
func (c *Client) RevokeAccess(ctx context.Context, tok, email, productID string) error {
	if tok == "" {
		return &Error{Code: CodeMissingAdminToken}
	}
	path := "/api/admin/grants?email=" + url.QueryEscape(email) + "&productId=" + url.QueryEscape(productID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, tok); err != nil {
		return errors.Wrap(err, "[RevokeAccess] request failed")
	}
	return nil
}

// ListUsers returns the back-office user listing.
func (c *Client) ListUsers(ctx context.Context, tok string) ([]AdminUser, error) {
	if tok == "" {
		return nil, &Error{Code: CodeMissingAdminToken}
	}
	var resp struct {
		Users []AdminUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, &resp, tok); err != nil {
		return nil, errors.Wrap(err, "[ListUsers] request failed")
	}
	return resp.Users, nil
}
