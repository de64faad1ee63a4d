package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

// BaseSuite loads the target environment and provides HTTP and websocket
// helpers shared by every scenario. The suite skips entirely when no
// E2E_BASE_URL is configured, so it never runs against nothing.
type BaseSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.BaseURL == "" {
		s.T().Skip("E2E_BASE_URL not set, skipping end-to-end suite")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Banner prints a colorized section header in the test log.
func (s *BaseSuite) Banner(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// DoJSON performs one authenticated JSON request and decodes the response
// body into out (when out is non-nil). It returns the status code.
func (s *BaseSuite) DoJSON(t *testing.T, method, path, token string, body, out any) int {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		if s.Config.DebugJSON {
			t.Logf("%s %s >> %s", method, path, raw)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.Config.BaseURL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		t.Logf("%s %s << [%d] %s", method, path, resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// DialWS opens an authenticated live connection.
func (s *BaseSuite) DialWS(token string) (*websocket.Conn, error) {
	url := s.Config.WSURL + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// RegisterUser provisions a throwaway account and returns its token.
func (s *BaseSuite) RegisterUser(t *testing.T, email, password string) string {
	var result struct {
		Token string `json:"token"`
	}
	status := s.DoJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	s.Require().Equal(http.StatusCreated, status)
	s.Require().NotEmpty(result.Token)
	return result.Token
}
