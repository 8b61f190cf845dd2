package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type NetworkController struct {
	BaseUrl string
	Timeout time.Duration
	Headers map[string]string

	client *http.Client
}

func (network *NetworkController) httpClient() *http.Client {
	if network.client == nil {
		timeout := network.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		network.client = &http.Client{Timeout: timeout}
	}
	return network.client
}

func (network *NetworkController) Get(ctx context.Context, path string, headers *map[string]string) (*[]byte, *int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s", network.BaseUrl, path), nil)
	if err != nil {
		return nil, nil, err
	}
	return network.do(req, headers)
}

func (network *NetworkController) Post(ctx context.Context, path string, headers *map[string]string, body any) (*[]byte, *int, error) {
	var payload io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		payload = bytes.NewBuffer(jsonBody)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", network.BaseUrl, path), payload)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return network.do(req, headers)
}

func (network *NetworkController) Delete(ctx context.Context, path string, headers *map[string]string) (*[]byte, *int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s%s", network.BaseUrl, path), nil)
	if err != nil {
		return nil, nil, err
	}
	return network.do(req, headers)
}

func (network *NetworkController) do(req *http.Request, headers *map[string]string) (*[]byte, *int, error) {
	for key, value := range network.Headers {
		req.Header.Set(key, value)
	}
	if headers != nil {
		for key, value := range *headers {
			req.Header.Set(key, value)
		}
	}
	res, err := network.httpClient().Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &res.StatusCode, err
	}
	return &responseBody, &res.StatusCode, nil
}
