// Package remote calls an inference sidecar for weapon and face detection.
//
// The sidecar takes the encoded frame as the request body and answers JSON:
//
//	POST {base}/v1/threats -> {"detections":[{"class":"knife","bbox":[x,y,w,h],"score":0.41}]}
//	POST {base}/v1/faces   -> {"face":{"box":[x,y,w,h],"score":0.98,"descriptor":[...]}} or {"face":null}
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/access-terminal/internal/detector"
	"github.com/oshokin/access-terminal/internal/frame"
)

const (
	threatsPath = "v1/threats"
	facesPath   = "v1/faces"

	// maxResponseSize bounds a sidecar answer; descriptors are a few KiB.
	maxResponseSize = 1 << 20
)

var (
	// errBadStatus is returned for non-2xx sidecar answers.
	errBadStatus = errors.New("unexpected inference status")
	// errBaseURLRequired is returned when no sidecar URL is configured.
	errBaseURLRequired = errors.New("inference base URL must be provided")
)

// Client implements detector.ThreatDetector and the face detection half of
// detector.FaceMatcher over HTTP.
type Client struct {
	// base is the sidecar root URL.
	base *url.URL
	// http performs the requests.
	http *http.Client
}

// NewClient creates a client for the sidecar at baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse inference URL: %w", err)
	}

	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}, nil
}

type threatsResponse struct {
	Detections []detector.Threat `json:"detections"`
}

type faceResponse struct {
	Face *detector.Face `json:"face"`
}

// DetectThreats posts the frame to the threats endpoint.
func (c *Client) DetectThreats(ctx context.Context, f *frame.Frame) ([]detector.Threat, error) {
	var resp threatsResponse
	if err := c.post(ctx, threatsPath, f, &resp); err != nil {
		return nil, err
	}

	return resp.Detections, nil
}

// DetectFace posts the frame to the faces endpoint.
func (c *Client) DetectFace(ctx context.Context, f *frame.Frame) (*detector.Face, error) {
	var resp faceResponse
	if err := c.post(ctx, facesPath, f, &resp); err != nil {
		return nil, err
	}

	if resp.Face == nil || len(resp.Face.Descriptor) == 0 {
		return nil, nil //nolint:nilnil // No face is a valid answer.
	}

	return resp.Face, nil
}

func (c *Client) post(ctx context.Context, path string, f *frame.Frame, out any) error {
	body, contentType, err := f.Encoded()
	if err != nil {
		return err
	}

	endpoint := c.base.JoinPath(path).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s returned %d", errBadStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}
