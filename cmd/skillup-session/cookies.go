package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
)

const cookieFileName = "cookies.json"

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

// cookieFile keeps the refresh cookie between invocations. The jar has no
// export, so cookies are collected per scope: the API base URL plus each
// auth path passed to openCookieFile. A cookie keeps the shortest scope it
// was seen at as its path.
type cookieFile struct {
	path   string
	base   *url.URL
	scopes []*url.URL
	jar    *cookiejar.Jar
}

func openCookieFile(dir, baseURL string, authPaths ...string) (*cookieFile, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	f := &cookieFile{base: base, scopes: cookieScopes(base, authPaths), jar: jar}
	if dir == "" {
		return f, nil
	}
	f.path = filepath.Join(dir, cookieFileName)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		// A damaged file only costs a login.
		return f, nil
	}
	for _, c := range saved {
		path := c.Path
		if path == "" {
			path = "/"
		}
		u := *base
		u.Path = path
		jar.SetCookies(&u, []*http.Cookie{{Name: c.Name, Value: c.Value, Path: path}})
	}
	return f, nil
}

// cookieScopes returns the base URL and base joined with each path, shortest
// path first.
func cookieScopes(base *url.URL, paths []string) []*url.URL {
	root := *base
	if root.Path == "" {
		root.Path = "/"
	}
	scopes := []*url.URL{&root}
	seen := map[string]bool{root.Path: true}
	for _, p := range paths {
		if p == "" {
			continue
		}
		u := base.JoinPath(p)
		if seen[u.Path] {
			continue
		}
		seen[u.Path] = true
		scopes = append(scopes, u)
	}
	sort.SliceStable(scopes, func(i, j int) bool { return len(scopes[i].Path) < len(scopes[j].Path) })
	return scopes
}

func (f *cookieFile) HTTPClient() *http.Client {
	return &http.Client{Jar: f.jar}
}

func (f *cookieFile) Save() error {
	if f.path == "" {
		return nil
	}
	type key struct{ name, value string }
	seen := make(map[key]bool)
	var saved []savedCookie
	for _, scope := range f.scopes {
		for _, c := range f.jar.Cookies(scope) {
			k := key{c.Name, c.Value}
			if seen[k] {
				continue
			}
			seen[k] = true
			saved = append(saved, savedCookie{Name: c.Name, Value: c.Value, Path: scope.Path})
		}
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}
