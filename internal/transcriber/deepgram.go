package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Deepgram uses the pre-recorded /v1/listen endpoint.
type Deepgram struct {
	endpoint string
	client   *http.Client
}

type deepgramResponse struct {
	Results *struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results,omitempty"`
	ErrMsg string `json:"err_msg,omitempty"`
}

func NewDeepgram(endpoint string) *Deepgram {
	return &Deepgram{endpoint: endpoint, client: http.DefaultClient}
}

func (a *Deepgram) Transcribe(ctx context.Context, req Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", nil
	}

	wavData, err := EncodeWAV(req.Audio)
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}

	apiURL, err := a.buildURL(req)
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(wavData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+req.APIKey)
	httpReq.Header.Set("Content-Type", "audio/wav")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result deepgramResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &result) == nil && result.ErrMsg != "" {
			return "", fmt.Errorf("deepgram api error (status %d): %s", resp.StatusCode, result.ErrMsg)
		}
		return "", fmt.Errorf("deepgram api error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.Results == nil || len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return result.Results.Channels[0].Alternatives[0].Transcript, nil
}

func (a *Deepgram) buildURL(req Request) (string, error) {
	u, err := url.Parse(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	if req.Model != "" {
		q.Set("model", req.Model)
	}
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	if req.Language != "" {
		q.Set("language", req.Language)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
