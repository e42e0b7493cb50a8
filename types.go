package storecheck

// FleetLease is a browser reserved from an isoFleet worker.
type FleetLease struct {
	BrowserID   string `json:"browser_id"`
	WorkerName  string `json:"worker"`
	BrowserType string `json:"browser_type"`
}

// TaskPayload represents the JSON sent TO Redis (RPUSH)
type TaskPayload struct {
	TaskID      string                 `json:"task_id"`
	BrowserID   string                 `json:"browser_id"`
	WorkerName  string                 `json:"worker_name"`
	Action      string                 `json:"action"`
	Args        map[string]interface{} `json:"args"`
	ResultKey   string                 `json:"result_key"`
	BrowserType string                 `json:"browser_type,omitempty"`
}

// TaskResponse represents the JSON received FROM Redis (BLPOP)
type TaskResponse struct {
	Status           string      `json:"status"`
	Error            string      `json:"error,omitempty"`
	ScreenshotBase64 string      `json:"screenshot_base64,omitempty"`
	ImageBase64      string      `json:"image_base64,omitempty"`
	Value            interface{} `json:"value,omitempty"`
}

// OK reports whether the worker executed the command.
func (r TaskResponse) OK() bool {
	return r.Status == "ok"
}

func (r TaskResponse) err(action string) error {
	if r.OK() {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = "status " + r.Status
	}
	return NewBrowserError("%s: %s", action, msg)
}
