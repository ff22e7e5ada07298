package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPSender entrega correos delegando en un endpoint HTTP externo.
type HTTPSender struct {
	endpointURL string
	apiKey      string
	client      *http.Client
}

func NewHTTPSender(endpointURL, apiKey string) (*HTTPSender, error) {
	if strings.TrimSpace(endpointURL) == "" {
		return nil, fmt.Errorf("email endpoint url is required")
	}
	return &HTTPSender{
		endpointURL: endpointURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *HTTPSender) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	payload, err := json.Marshal(map[string]string{
		"Email":        toEmail,
		"Subject":      subject,
		"HtmlTemplate": htmlBody,
	})
	if err != nil {
		return err
	}

	endpoint, err := url.Parse(s.endpointURL)
	if err != nil {
		return err
	}
	query := endpoint.Query()
	query.Set("api-version", "2016-06-01")
	query.Set("sp", "/triggers/manual/run")
	query.Set("sv", "1.0")
	query.Set("sig", s.apiKey)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
