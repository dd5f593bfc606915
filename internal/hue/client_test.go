package hue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://"), "testtoken", 5*time.Second)
}

func TestGetLights(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/testtoken/lights" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{
			"1": {"name": "Ceiling", "state": {"on": true, "reachable": true}},
			"2": {"name": "Shelf (att)", "state": {"on": false, "reachable": false}}
		}`)
	}))

	lights, err := client.GetLights(context.Background())
	if err != nil {
		t.Fatalf("GetLights() error: %v", err)
	}
	if len(lights) != 2 {
		t.Fatalf("got %d lights, want 2", len(lights))
	}

	byID := map[string]Light{}
	for _, l := range lights {
		byID[l.ID] = l
	}
	if byID["1"].Name != "Ceiling" || !byID["1"].State.Reachable {
		t.Errorf("light 1 = %+v", byID["1"])
	}
	if byID["2"].State.Reachable {
		t.Errorf("light 2 should be unreachable: %+v", byID["2"])
	}
}

func TestGetScenes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/testtoken/scenes" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{
			"abc": {"name": "Evening (17h-sunset)", "lights": ["1", "2"], "group": "3"}
		}`)
	}))

	scenes, err := client.GetScenes(context.Background())
	if err != nil {
		t.Fatalf("GetScenes() error: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes, want 1", len(scenes))
	}
	if scenes[0].ID != "abc" || scenes[0].Name != "Evening (17h-sunset)" {
		t.Errorf("scene = %+v", scenes[0])
	}
	if len(scenes[0].Lights) != 2 {
		t.Errorf("scene lights = %v", scenes[0].Lights)
	}
}

func TestActivateScene(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, `[{"success":{}}]`)
	}))

	if err := client.ActivateScene(context.Background(), "scene-42"); err != nil {
		t.Fatalf("ActivateScene() error: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotPath != "/api/testtoken/groups/0/action" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["scene"] != "scene-42" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSetLightState(t *testing.T) {
	var gotPath string
	var gotBody map[string]bool

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, `[{"success":{}}]`)
	}))

	if err := client.SetLightState(context.Background(), "7", false); err != nil {
		t.Fatalf("SetLightState() error: %v", err)
	}

	if gotPath != "/api/testtoken/lights/7/state" {
		t.Errorf("path = %q", gotPath)
	}
	if on, ok := gotBody["on"]; !ok || on {
		t.Errorf("body = %v, want {\"on\": false}", gotBody)
	}
}

func TestErrorStatusCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := client.GetLights(context.Background()); err == nil {
		t.Error("GetLights() should fail on 500")
	}
	if err := client.ActivateScene(context.Background(), "x"); err == nil {
		t.Error("ActivateScene() should fail on 500")
	}
}

func TestRequestContextCancellation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.GetLights(ctx); err == nil {
		t.Error("GetLights() should fail when the context expires")
	}
}
