package storecheck

import (
	"context"
	"fmt"
	"time"
)

// workerTimeout is the wait budget handed to the worker for a command, kept
// inside ctx so the worker reports its own timeout before the RPC gives up.
func workerTimeout(ctx context.Context) float64 {
	d := remaining(ctx, DefaultRPCWait) - time.Second
	if d < time.Second {
		d = time.Second
	}
	return d.Seconds()
}

func (c *Client) do(ctx context.Context, action string, args map[string]interface{}) (TaskResponse, error) {
	res, err := c.Send(ctx, action, args)
	if err != nil {
		return res, err
	}
	return res, res.err(action)
}

// --- Navigation ---

func (c *Client) OpenURL(ctx context.Context, url string) error {
	_, err := c.do(ctx, "open_url", map[string]interface{}{"url": url})
	return err
}

func (c *Client) WaitForNetworkIdle(ctx context.Context) error {
	_, err := c.do(ctx, "wait_for_network_idle", nil)
	return err
}

func (c *Client) GetCurrentURL(ctx context.Context) (string, error) {
	res, err := c.do(ctx, "get_current_url", nil)
	if err != nil {
		return "", err
	}
	url, ok := res.Value.(string)
	if !ok {
		return "", NewBrowserError("get_current_url: unexpected value %v", res.Value)
	}
	return url, nil
}

// --- Interaction (Clicks & Typing) ---

func (c *Client) Click(ctx context.Context, selector string) error {
	_, err := c.do(ctx, "click", map[string]interface{}{
		"selector": selector,
		"timeout":  workerTimeout(ctx),
	})
	return err
}

func (c *Client) Type(ctx context.Context, selector, text string) error {
	_, err := c.do(ctx, "type", map[string]interface{}{
		"selector": selector,
		"text":     text,
		"timeout":  workerTimeout(ctx),
	})
	return err
}

// --- Waits ---

func (c *Client) WaitForElement(ctx context.Context, selector string) error {
	_, err := c.do(ctx, "wait_for_element", map[string]interface{}{
		"selector": selector,
		"timeout":  workerTimeout(ctx),
	})
	return err
}

func (c *Client) WaitForText(ctx context.Context, text, selector string) error {
	if selector == "" {
		selector = "html"
	}
	_, err := c.do(ctx, "wait_for_text", map[string]interface{}{
		"text":     text,
		"selector": selector,
		"timeout":  workerTimeout(ctx),
	})
	return err
}

// --- Screenshots ---

// Screenshot returns the viewport of the leased browser as PNG bytes.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	res, err := c.do(ctx, "save_screenshot", map[string]interface{}{"name": "temp.png"})
	if err != nil {
		return nil, err
	}
	if res.ImageBase64 == "" {
		return nil, NewBrowserError("save_screenshot: empty image")
	}
	png, err := decodeBase64(res.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("save_screenshot: %w", err)
	}
	return png, nil
}
