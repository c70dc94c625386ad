package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/wpsync/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

// Client talks to one WordPress site with one set of credentials. A Client is
// never mutated after construction; use WithConnection to target another
// account.
type Client struct {
	http     *resty.Client
	conn     Connection
	validate *validator.Validate
}

// PostQuery selects a single page of posts.
type PostQuery struct {
	PerPage       int
	Page          int
	OrderBy       string
	Order         string
	Status        string
	Search        string
	ModifiedAfter time.Time
}

func (q PostQuery) params() map[string]string {
	p := map[string]string{}
	if q.PerPage > 0 {
		p["per_page"] = strconv.Itoa(q.PerPage)
	}
	if q.Page > 0 {
		p["page"] = strconv.Itoa(q.Page)
	}
	if q.OrderBy != "" {
		p["orderby"] = q.OrderBy
	}
	if q.Order != "" {
		p["order"] = q.Order
	}
	if q.Status != "" {
		p["status"] = q.Status
	}
	if q.Search != "" {
		p["search"] = q.Search
	}
	if !q.ModifiedAfter.IsZero() {
		// With an explicit offset WordPress converts to site time before
		// comparing against post_modified.
		p["modified_after"] = q.ModifiedAfter.Format(time.RFC3339)
	}
	return p
}

// ConnectionResult is the outcome of TestConnection.
type ConnectionResult struct {
	Success    bool           `json:"success"`
	AuthFailed bool           `json:"authFailed,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

// NewClient creates a client for conn.
func NewClient(conn Connection) *Client {
	return newClient(resty.New(), conn)
}

func newClient(rc *resty.Client, conn Connection) *Client {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	rc.SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "wpsync/1.0")

	return &Client{
		http:     rc,
		conn:     conn,
		validate: v,
	}
}

// WithConnection returns a new client for conn that shares the underlying
// HTTP transport with c.
func (c *Client) WithConnection(conn Connection) *Client {
	return newClient(resty.NewWithClient(c.http.GetClient()), conn)
}

// Connection returns the connection the client was built with.
func (c *Client) Connection() Connection {
	return c.conn
}

// TestConnection performs a lightweight authenticated read. It never returns
// an error; failures are described in the result.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	if err := c.conn.Validate(); err != nil {
		return ConnectionResult{Message: err.Error()}
	}

	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/wp/v2/posts", func(r *resty.Request) {
		r.SetQueryParam("per_page", "1").SetQueryParam("context", "edit")
	})
	details := map[string]any{
		"url":     c.conn.endpoint("/wp/v2/posts"),
		"latency": time.Since(start).String(),
	}
	if resp != nil {
		details["status"] = resp.StatusCode()
	}

	switch {
	case err == nil:
		return ConnectionResult{Success: true, Message: "Connected to WordPress", Details: details}
	case IsAuthError(err):
		details["error"] = err.Error()
		return ConnectionResult{
			AuthFailed: true,
			Message:    "Authentication failed: check the username and application password",
			Details:    details,
		}
	case errors.Is(err, ErrUnreachable):
		details["error"] = err.Error()
		return ConnectionResult{Message: "WordPress is unreachable", Details: details}
	default:
		details["error"] = err.Error()
		return ConnectionResult{Message: "WordPress returned an error", Details: details}
	}
}

// GetPosts returns one page of posts. It does not follow pagination.
func (c *Client) GetPosts(ctx context.Context, q PostQuery) ([]models.Post, error) {
	var posts []models.Post
	_, err := c.do(ctx, http.MethodGet, "/wp/v2/posts", func(r *resty.Request) {
		r.SetQueryParams(q.params()).SetResult(&posts)
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id int) (*models.Post, error) {
	var post models.Post
	_, err := c.do(ctx, http.MethodGet, postPath(id), func(r *resty.Request) {
		r.SetResult(&post)
	})
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &post, nil
}

// GetCategories lists the site's categories.
func (c *Client) GetCategories(ctx context.Context) ([]models.Term, error) {
	return c.terms(ctx, "/wp/v2/categories")
}

// GetTags lists the site's tags.
func (c *Client) GetTags(ctx context.Context) ([]models.Term, error) {
	return c.terms(ctx, "/wp/v2/tags")
}

func (c *Client) terms(ctx context.Context, path string) ([]models.Term, error) {
	var terms []models.Term
	_, err := c.do(ctx, http.MethodGet, path, func(r *resty.Request) {
		r.SetQueryParam("per_page", "100").SetResult(&terms)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return terms, nil
}

// CreatePost creates a post and returns it with its new id.
func (c *Client) CreatePost(ctx context.Context, p PostPayload) (*models.Post, error) {
	if err := c.validatePayload(p); err != nil {
		return nil, err
	}

	var post models.Post
	_, err := c.do(ctx, http.MethodPost, "/wp/v2/posts", func(r *resty.Request) {
		r.SetBody(p).SetResult(&post)
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// UpdatePost replaces the title, content, excerpt and status of post id.
func (c *Client) UpdatePost(ctx context.Context, id int, p PostPayload) (*models.Post, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Rule: "required"}
	}
	if err := c.validatePayload(p); err != nil {
		return nil, err
	}

	var post models.Post
	_, err := c.do(ctx, http.MethodPost, postPath(id), func(r *resty.Request) {
		r.SetBody(p).SetResult(&post)
	})
	if err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	return &post, nil
}

// DeletePost deletes post id. With force the post bypasses the trash.
func (c *Client) DeletePost(ctx context.Context, id int, force bool) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Rule: "required"}
	}
	_, err := c.do(ctx, http.MethodDelete, postPath(id), func(r *resty.Request) {
		if force {
			r.SetQueryParam("force", "true")
		}
	})
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

func (c *Client) validatePayload(p PostPayload) error {
	if err := c.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
		}
		return err
	}
	return nil
}

// do sends one authenticated request bounded by the connection timeout.
func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request)) (*resty.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.conn.timeout())
	defer cancel()

	req := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.conn.Username, c.conn.AppPassword)
	if build != nil {
		build(req)
	}

	resp, err := req.Execute(method, c.conn.endpoint(path))
	if err != nil {
		return resp, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.IsError() {
		return resp, parseError(resp)
	}
	return resp, nil
}

// parseError keeps the remote error body intact so callers see codes such as
// rest_cannot_create.
func parseError(resp *resty.Response) error {
	wpErr := &Error{StatusCode: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), wpErr); err != nil || wpErr.Message == "" {
		wpErr.Message = strings.TrimSpace(string(resp.Body()))
		if wpErr.Message == "" {
			wpErr.Message = http.StatusText(resp.StatusCode())
		}
	}
	return wpErr
}

func postPath(id int) string {
	return "/wp/v2/posts/" + strconv.Itoa(id)
}
