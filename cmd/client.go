package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// call sends a request to the daemon and decodes a JSON answer into out
// when out is non-nil. Non-2xx answers become errors carrying the daemon's
// message.
func call(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, daemonURL(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not running: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode >= 300 {
		var result map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&result)
		if msg := result["error"]; msg != "" {
			return errors.New(msg)
		}
		return fmt.Errorf("daemon answered %s", resp.Status)
	}

	if out == nil {
		return nil
	}

	if s, ok := out.(*string); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		*s = string(b)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode daemon response: %w", err)
	}

	return nil
}
