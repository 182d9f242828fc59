package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AppiumSession implements Session over the WebDriver-over-HTTP protocol
// an Appium server speaks. It is the one concrete collaborator the spec
// treats as external; the engine and dispatcher depend only on Session.
type AppiumSession struct {
	serverURL string
	sessionID string
	client    *http.Client
}

// NewAppiumSession attaches to an already-created Appium session. Session
// creation (POST /session with desired capabilities) is a construction-time
// concern handled by the caller, following spec §6's framing of
// DeviceSession as a pre-established collaborator.
func NewAppiumSession(serverURL, sessionID string, timeout time.Duration) *AppiumSession {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AppiumSession{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		sessionID: sessionID,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *AppiumSession) GetPageSource(ctx context.Context) (string, error) {
	resp, err := s.get(ctx, s.sessionPath()+"/source")
	if err != nil {
		return "", err
	}
	src, _ := resp["value"].(string)
	return src, nil
}

func (s *AppiumSession) GetCurrentActivity(ctx context.Context) (string, error) {
	resp, err := s.get(ctx, s.sessionPath()+"/appium/device/current_activity")
	if err != nil {
		return "", err
	}
	activity, _ := resp["value"].(string)
	return activity, nil
}

func (s *AppiumSession) GetWindowSize(ctx context.Context) (WindowSize, error) {
	resp, err := s.get(ctx, s.sessionPath()+"/window/rect")
	if err != nil {
		return WindowSize{}, err
	}
	value, _ := resp["value"].(map[string]interface{})
	w, _ := value["width"].(float64)
	h, _ := value["height"].(float64)
	return WindowSize{Width: int(w), Height: int(h)}, nil
}

func (s *AppiumSession) TakeScreenshot(ctx context.Context) (string, error) {
	resp, err := s.get(ctx, s.sessionPath()+"/screenshot")
	if err != nil {
		return "", err
	}
	b64, _ := resp["value"].(string)
	return b64, nil
}

func (s *AppiumSession) Tap(ctx context.Context, x, y int) error {
	return s.performTouch(ctx, []map[string]interface{}{
		{"type": "pointerMove", "duration": 0, "x": x, "y": y, "origin": "viewport"},
		{"type": "pointerDown", "button": 0},
		{"type": "pause", "duration": 50},
		{"type": "pointerUp", "button": 0},
	})
}

func (s *AppiumSession) LongPress(ctx context.Context, x, y, durationMS int) error {
	return s.performTouch(ctx, []map[string]interface{}{
		{"type": "pointerMove", "duration": 0, "x": x, "y": y, "origin": "viewport"},
		{"type": "pointerDown", "button": 0},
		{"type": "pause", "duration": durationMS},
		{"type": "pointerUp", "button": 0},
	})
}

// SwipeGesture replays a single-finger timeline of press/wait/move/release
// steps as one W3C Actions pointer sequence (spec §6: swipeGesture).
func (s *AppiumSession) SwipeGesture(ctx context.Context, points []TouchPoint) error {
	return s.performTouch(ctx, touchPointsToActions(points))
}

// MultiTouch replays several synchronized per-finger timelines (spec §6:
// multiTouch), used for pinch/zoom.
func (s *AppiumSession) MultiTouch(ctx context.Context, fingers [][]TouchPoint) error {
	payload := make([]map[string]interface{}, 0, len(fingers))
	for i, finger := range fingers {
		payload = append(payload, map[string]interface{}{
			"type":       "pointer",
			"id":         fmt.Sprintf("finger%d", i+1),
			"parameters": map[string]interface{}{"pointerType": "touch"},
			"actions":    touchPointsToActions(finger),
		})
	}
	_, err := s.post(ctx, s.sessionPath()+"/actions", map[string]interface{}{"actions": payload})
	return err
}

func (s *AppiumSession) TypeKeys(ctx context.Context, chars []string) error {
	keyActions := make([]map[string]interface{}, 0, len(chars)*2)
	for _, ch := range chars {
		keyActions = append(keyActions,
			map[string]interface{}{"type": "keyDown", "value": ch},
			map[string]interface{}{"type": "keyUp", "value": ch},
		)
	}
	_, err := s.post(ctx, s.sessionPath()+"/actions", map[string]interface{}{
		"actions": []map[string]interface{}{
			{"type": "key", "id": "keyboard", "actions": keyActions},
		},
	})
	if err != nil {
		// Fallback: Appium's element/active value endpoint.
		_, err = s.post(ctx, s.sessionPath()+"/appium/element/active/value", map[string]interface{}{
			"text": strings.Join(chars, ""),
		})
	}
	return err
}

func (s *AppiumSession) Pause(ctx context.Context, ms int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	}
}

func (s *AppiumSession) Capabilities(ctx context.Context) (Capabilities, error) {
	resp, err := s.get(ctx, s.sessionPath())
	if err != nil {
		return Capabilities{}, err
	}
	value, _ := resp["value"].(map[string]interface{})
	caps, _ := value["capabilities"].(map[string]interface{})
	platformName, _ := caps["platformName"].(string)
	platformVersion, _ := caps["platformVersion"].(string)
	deviceName, _ := caps["deviceName"].(string)
	return Capabilities{
		PlatformName:    platformName,
		PlatformVersion: platformVersion,
		DeviceName:      deviceName,
	}, nil
}

func touchPointsToActions(points []TouchPoint) []map[string]interface{} {
	actions := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		switch p.Action {
		case TouchPress:
			actions = append(actions,
				map[string]interface{}{"type": "pointerMove", "duration": 0, "x": p.X, "y": p.Y, "origin": "viewport"},
				map[string]interface{}{"type": "pointerDown", "button": 0},
			)
		case TouchMove:
			actions = append(actions, map[string]interface{}{
				"type": "pointerMove", "duration": p.WaitMS, "x": p.X, "y": p.Y, "origin": "viewport",
			})
		case TouchWait:
			actions = append(actions, map[string]interface{}{"type": "pause", "duration": p.WaitMS})
		case TouchRelease:
			actions = append(actions, map[string]interface{}{"type": "pointerUp", "button": 0})
		}
	}
	return actions
}

func (s *AppiumSession) performTouch(ctx context.Context, actions []map[string]interface{}) error {
	payload := []map[string]interface{}{
		{
			"type":       "pointer",
			"id":         "finger1",
			"parameters": map[string]interface{}{"pointerType": "touch"},
			"actions":    actions,
		},
	}
	_, err := s.post(ctx, s.sessionPath()+"/actions", map[string]interface{}{"actions": payload})
	return err
}

func (s *AppiumSession) sessionPath() string {
	return "/session/" + s.sessionID
}

func (s *AppiumSession) get(ctx context.Context, path string) (map[string]interface{}, error) {
	return s.request(ctx, http.MethodGet, path, nil)
}

func (s *AppiumSession) post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	return s.request(ctx, http.MethodPost, path, body)
}

func (s *AppiumSession) request(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	url := s.serverURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse appium response: %w", err)
	}

	if value, ok := result["value"].(map[string]interface{}); ok {
		if errType, ok := value["error"].(string); ok {
			msg, _ := value["message"].(string)
			return result, fmt.Errorf("appium error %s: %s", errType, msg)
		}
	}

	return result, nil
}
