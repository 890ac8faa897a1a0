package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type savedSession struct {
	Backend string        `json:"backend"`
	Cookies []savedCookie `json:"cookies"`
}

func apiURL(baseURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/api/")
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	return u, nil
}

// LoadJar returns a cookie jar holding the cookies saved in file for
// baseURL. A missing file or one saved for another backend yields an empty
// jar.
func LoadJar(file, baseURL string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	u, err := apiURL(baseURL)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if saved.Backend != strings.TrimRight(baseURL, "/") {
		return jar, nil
	}

	cookies := make([]*http.Cookie, 0, len(saved.Cookies))
	for _, c := range saved.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(u, cookies)
	return jar, nil
}

// SaveJar writes the jar's cookies for baseURL to file (mode 0600).
func SaveJar(jar http.CookieJar, file, baseURL string) error {
	u, err := apiURL(baseURL)
	if err != nil {
		return err
	}

	saved := savedSession{Backend: strings.TrimRight(baseURL, "/")}
	for _, c := range jar.Cookies(u) {
		saved.Cookies = append(saved.Cookies, savedCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := os.WriteFile(file, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
