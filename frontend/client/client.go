package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// jwtSigningKey is used to sign the short-lived operator tokens the CLI
// sends with privileged requests.
var jwtSigningKey string

// ServerURL is the URL of the server the client is connecting to.
var ServerURL string

// client is the HTTP client used to make requests to the server.
var client = &http.Client{Timeout: 15 * time.Second}

// InitClient initializes the server URL and signing key.
// This function must be called before using any other functions in the package.
func InitClient(serverURL, signingKey string) {
	ServerURL = serverURL
	jwtSigningKey = signingKey
}

// operatorToken signs a short-lived token carrying the given user id, so the
// CLI can act on that user's behalf against the API.
func operatorToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSigningKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign operator token: %w", err)
	}
	return signed, nil
}

// request performs one API call and decodes the JSON response into out.
func request(method, path, bearer string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, raw)
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// Profile fetches a user's aggregate record.
func Profile(userID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := request(http.MethodGet, "/api/users/"+userID+"/profile", "", nil, &out)
	return out, err
}

// Streak fetches a user's current day streak.
func Streak(userID string) (int, error) {
	var out struct {
		Streak int `json:"streak"`
	}
	err := request(http.MethodGet, "/api/users/"+userID+"/streak", "", nil, &out)
	return out.Streak, err
}

// Leaderboard fetches the weekly leaderboard.
func Leaderboard(limit int) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	err := request(http.MethodGet, fmt.Sprintf("/api/leaderboard?limit=%d", limit), "", nil, &out)
	return out, err
}

// Evaluate triggers achievement evaluation for a user and returns anything
// newly earned.
func Evaluate(userID string) ([]map[string]interface{}, error) {
	token, err := operatorToken(userID)
	if err != nil {
		return nil, err
	}

	var out struct {
		NewAchievements []map[string]interface{} `json:"new_achievements"`
	}
	err = request(http.MethodPost, "/api/achievements/evaluate", token, map[string]string{}, &out)
	return out.NewAchievements, err
}
