package odoo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"
)

// Client is a minimal Odoo XML-RPC client
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
	transport http.RoundTripper
}

// NewClient creates a new Odoo client
func NewClient(url, db, username, password string) *Client {
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
		transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
	}
}

func (c *Client) call(endpoint, method string, args []interface{}, reply interface{}) error {
	client, err := xmlrpc.NewClient(endpoint, c.transport)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()
	return client.Call(method, args, reply)
}

func (c *Client) execute(model, method string, positional []interface{}, kwargs map[string]interface{}, reply interface{}) error {
	args := []interface{}{c.Database, c.Uid, c.Password, model, method, positional}
	if kwargs != nil {
		args = append(args, kwargs)
	}
	if err := c.call(c.ObjectURL, "execute_kw", args, reply); err != nil {
		return fmt.Errorf("failed to execute %s.%s: %w", model, method, err)
	}
	return nil
}

// Authenticate authenticates with Odoo and returns the user ID
func (c *Client) Authenticate() (int, error) {
	args := []interface{}{c.Database, c.Username, c.Password, map[string]interface{}{}}
	var uid int
	if err := c.call(c.CommonURL, "authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}
	if uid == 0 {
		return 0, fmt.Errorf("authentication failed: invalid credentials")
	}
	c.Uid = uid
	return uid, nil
}

// SearchRead runs search_read and decodes the rows into result (a pointer
// to a slice of structs with json tags)
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit int, result interface{}) error {
	var raw []map[string]interface{}
	err := c.execute(model, "search_read", []interface{}{domain}, map[string]interface{}{
		"fields": fields,
		"limit":  limit,
	}, &raw)
	if err != nil {
		return err
	}

	// Round-trip through JSON so struct tags drive the mapping
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}

// Search returns the ids matching domain
func (c *Client) Search(model string, domain []interface{}, limit int) ([]int64, error) {
	var ids []int64
	err := c.execute(model, "search", []interface{}{domain}, map[string]interface{}{"limit": limit}, &ids)
	return ids, err
}

// Create creates a new record and returns its id
func (c *Client) Create(model string, values map[string]interface{}) (int64, error) {
	var id int64
	if err := c.execute(model, "create", []interface{}{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Write updates existing records
func (c *Client) Write(model string, ids []int64, values map[string]interface{}) error {
	var ok bool
	if err := c.execute(model, "write", []interface{}{ids, values}, nil, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("write on %s returned false", model)
	}
	return nil
}
