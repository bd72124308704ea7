package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/text:synthesize"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAPIKey      = "X-Goog-Api-Key"
	contentTypeJSON   = "application/json"
)

// Default values.
const (
	audioEncodingOggOpus = "OGG_OPUS"
	defaultSpeakingRate  = 1.0
)

// Error messages.
const (
	errTextCannotBeEmpty     = "text cannot be empty"
	errReceivedEmptyAudio    = "received empty audio content"
	errFmtServiceNonOKStatus = "synthesis service returned non-OK status: %s, body: %s"
)

// ErrTextEmpty indicates an empty synthesis input.
var ErrTextEmpty = errors.New(errTextCannotBeEmpty)

// HTTPClient is a client for the Google Cloud text-to-speech REST API.
type HTTPClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	voiceName    string
	languageCode string
}

// synthesizeRequest is the JSON payload for the synthesize endpoint.
type synthesizeRequest struct {
	Input       synthesisInput  `json:"input"`
	Voice       voiceSelection  `json:"voice"`
	AudioConfig audioConfigSpec `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type audioConfigSpec struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate"`
}

// synthesizeResponse is the JSON response of the synthesize endpoint; the
// audio payload arrives base64-encoded.
type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// NewHTTPClient creates a client for the synthesis service. The baseURL
// should include protocol and host (e.g. "https://texttospeech.googleapis.com").
// The timeout applies to every request.
func NewHTTPClient(
	baseURL, apiKey, voiceName, languageCode string,
	timeout time.Duration,
) *HTTPClient {
	return &HTTPClient{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		apiKey:       apiKey,
		voiceName:    voiceName,
		languageCode: languageCode,
	}
}

// SynthesizeChunk sends one text chunk to the synthesis backend and returns
// the decoded OGG Opus audio bytes. The caller is responsible for keeping the
// chunk under the backend's request-size limit.
func (c *HTTPClient) SynthesizeChunk(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	requestBody, err := json.Marshal(synthesizeRequest{
		Input: synthesisInput{Text: text},
		Voice: voiceSelection{
			LanguageCode: c.languageCode,
			Name:         c.voiceName,
		},
		AudioConfig: audioConfigSpec{
			AudioEncoding: audioEncodingOggOpus,
			SpeakingRate:  defaultSpeakingRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := c.baseURL + apiSynthesize

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)

	if c.apiKey != "" {
		httpReq.Header.Set(headerAPIKey, c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to synthesis service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
	}

	var payload synthesizeResponse

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesis response: %w", err)
	}

	audioData, err := base64.StdEncoding.DecodeString(payload.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}

	if len(audioData) == 0 {
		return nil, errors.New(errReceivedEmptyAudio)
	}

	return audioData, nil
}
