package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// Smoke drives a running API through the register/activate/login flow and a
// catalog round trip, verifying the authorization tiers on the way.
func main() {
	base := os.Getenv("REELHOUSE_SMOKE_ADDR")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 5 * time.Second}

	email := fmt.Sprintf("smoke-%d@example.com", rand.Int())

	// register
	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		ActivationToken string `json:"activation_token"`
	}
	mustCall(client, http.MethodPost, base+"/v1/users", "", map[string]any{
		"name": "Smoke Tester", "email": email, "password": "pa55word!",
	}, http.StatusCreated, &registered)
	if registered.ActivationToken == "" {
		log.Fatal("no activation token returned")
	}

	// activate
	mustCall(client, http.MethodPut, base+"/v1/users/activated", "", map[string]any{
		"email": email, "token": registered.ActivationToken,
	}, http.StatusOK, nil)

	// login
	var login struct {
		Token string `json:"token"`
	}
	mustCall(client, http.MethodPost, base+"/v1/users/login", "", map[string]any{
		"email": email, "password": "pa55word!",
	}, http.StatusCreated, &login)

	// read works, write is denied for the default grant
	mustCall(client, http.MethodGet, base+"/v1/movies", login.Token, nil, http.StatusOK, nil)
	mustCall(client, http.MethodPost, base+"/v1/movies", login.Token, map[string]any{
		"title": "Smoke Movie", "year": 2001, "runtime": 90, "genres": []string{"drama"},
	}, http.StatusForbidden, nil)

	// full CRUD needs a privileged token supplied by the operator
	editor := os.Getenv("REELHOUSE_SMOKE_EDITOR_TOKEN")
	if editor == "" {
		fmt.Println("✅ smoke test passed (read tier only; set REELHOUSE_SMOKE_EDITOR_TOKEN for the write tier)")
		return
	}

	var created struct {
		Movie struct {
			ID      int64 `json:"id"`
			Version int32 `json:"version"`
		} `json:"movie"`
	}
	mustCall(client, http.MethodPost, base+"/v1/movies", editor, map[string]any{
		"title": "Smoke Movie", "year": 2001, "runtime": 90, "genres": []string{"drama"},
	}, http.StatusCreated, &created)

	movieURL := fmt.Sprintf("%s/v1/movies/%d", base, created.Movie.ID)
	mustCall(client, http.MethodPatch, movieURL, editor, map[string]any{
		"runtime": 91, "expected_version": created.Movie.Version,
	}, http.StatusOK, nil)

	// the stale version must lose
	mustCall(client, http.MethodPatch, movieURL, editor, map[string]any{
		"runtime": 92, "expected_version": created.Movie.Version,
	}, http.StatusConflict, nil)

	mustCall(client, http.MethodDelete, movieURL, editor, nil, http.StatusNoContent, nil)

	fmt.Println("✅ smoke test passed")
}

func mustCall(client *http.Client, method, url, token string, body any, wantStatus int, out any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s: encode: %v", method, url, err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: got %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
}
