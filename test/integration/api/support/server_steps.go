package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/barscan/internal/server"
)

// RegisterServerSteps registers server configuration, request and response
// steps.
func (tc *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a running barscan server$`, tc.aRunningServer)
	sc.Step(`^the server limits uploads to (\d+) MB$`, tc.theServerLimitsUploads)
	sc.Step(`^the server allows (\d+) requests? per minute with a burst of (\d+)$`, tc.theServerRateLimits)

	sc.Step(`^I POST it to "([^"]*)"$`, tc.iPostItTo)
	sc.Step(`^I POST it to "([^"]*)" as a raw body$`, tc.iPostItRaw)
	sc.Step(`^I POST it to "([^"]*)" (\d+) times$`, tc.iPostItTimes)
	sc.Step(`^I GET "([^"]*)"$`, tc.iGet)

	sc.Step(`^the response status should be (\d+)$`, tc.theResponseStatusShouldBe)
	sc.Step(`^the response should list the payloads "([^"]*)"$`, tc.theResponseShouldListPayloads)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, tc.theJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be set$`, tc.theResponseHeaderShouldBeSet)
	sc.Step(`^the response content type should be "([^"]*)"$`, tc.theContentTypeShouldBe)
}

func (tc *TestContext) aRunningServer() error {
	return nil
}

func (tc *TestContext) theServerLimitsUploads(mb int) error {
	tc.Config.MaxUploadMB = int64(mb)
	return nil
}

func (tc *TestContext) theServerRateLimits(perMinute, burst int) error {
	tc.Config.RateLimitPerMinute = perMinute
	tc.Config.RateLimitBurst = burst
	return nil
}

func (tc *TestContext) iPostItTo(path string) error {
	data, err := tc.payload()
	if err != nil {
		return err
	}
	body, contentType, err := multipartBody(data)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, body, contentType)
}

func (tc *TestContext) iPostItRaw(path string) error {
	data, err := tc.payload()
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(data), "application/octet-stream")
}

func (tc *TestContext) iPostItTimes(path string, n int) error {
	for range n {
		if err := tc.iPostItTo(path); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TestContext) iGet(path string) error {
	return tc.do(http.MethodGet, path, nil, "")
}

func (tc *TestContext) do(method, path string, body io.Reader, contentType string) error {
	if err := tc.ensureServer(); err != nil {
		return err
	}
	req, err := http.NewRequest(method, tc.Server.URL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := tc.Server.Client().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	tc.LastStatus = resp.StatusCode
	tc.LastHeaders = resp.Header
	tc.LastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) theResponseStatusShouldBe(status int) error {
	if tc.LastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.LastStatus, tc.LastBody)
	}
	return nil
}

func (tc *TestContext) theResponseShouldListPayloads(list string) error {
	var resp server.DecodeResponse
	if err := json.Unmarshal(tc.LastBody, &resp); err != nil {
		return fmt.Errorf("response is not a decode result: %w", err)
	}
	got := make([]string, len(resp.Barcodes))
	for i, b := range resp.Barcodes {
		got[i] = b.Payload
	}
	want := strings.Split(list, ",")
	if !slices.Equal(got, want) {
		return fmt.Errorf("expected payloads %v, got %v", want, got)
	}
	if resp.Count != len(want) {
		return fmt.Errorf("count is %d, expected %d", resp.Count, len(want))
	}
	return nil
}

func (tc *TestContext) theJSONFieldShouldBe(field, want string) error {
	var m map[string]any
	if err := json.Unmarshal(tc.LastBody, &m); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	got, ok := m[field]
	if !ok {
		return fmt.Errorf("field %q missing in %s", field, tc.LastBody)
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("field %q is %q, expected %q", field, got, want)
	}
	return nil
}

func (tc *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if tc.LastHeaders.Get(name) == "" {
		return fmt.Errorf("header %s is not set", name)
	}
	return nil
}

func (tc *TestContext) theContentTypeShouldBe(want string) error {
	if got := tc.LastHeaders.Get("Content-Type"); !strings.HasPrefix(got, want) {
		return fmt.Errorf("content type is %q, expected %q", got, want)
	}
	return nil
}
