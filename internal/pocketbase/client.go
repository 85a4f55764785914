package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal record-store client: create a record in a named
// collection, get back its new id. The auth token is pre-acquired by the
// caller; there is no login flow here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store rejected request: status=%d message=%s", e.Status, e.Message)
}

func (c *Client) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recordsURL(collection), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) CreateWithFile(ctx context.Context, collection string, fields map[string]interface{}, fileField, fileName string, fileData []byte) (string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writeFields(writer, fields); err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return "", fmt.Errorf("encode form file: %w", err)
	}
	if _, err := part.Write(fileData); err != nil {
		return "", fmt.Errorf("encode form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recordsURL(collection), buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func (c *Client) recordsURL(collection string) string {
	return c.baseURL + "/api/collections/" + collection + "/records"
}

func (c *Client) do(req *http.Request) (string, error) {
	req.Header.Set("Authorization", c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		}
		return "", apiErr
	}
	var record struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &record); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if record.ID == "" {
		return "", fmt.Errorf("response missing record id")
	}
	return record.ID, nil
}

func writeFields(writer *multipart.Writer, fields map[string]interface{}) error {
	for key, value := range fields {
		switch typed := value.(type) {
		case []string:
			for _, item := range typed {
				if err := writer.WriteField(key, item); err != nil {
					return err
				}
			}
		case string:
			if err := writer.WriteField(key, typed); err != nil {
				return err
			}
		default:
			if err := writer.WriteField(key, fmt.Sprint(typed)); err != nil {
				return err
			}
		}
	}
	return nil
}
