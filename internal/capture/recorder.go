package capture

import (
	"context"
	"encoding/base64"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Recorder feeds a live browser page's network responses into a Controller.
// It is the browser-side producer of the capture contract; HTTP strategies
// produce the same Response values directly.
type Recorder struct {
	page   *rod.Page
	ctrl   *Controller
	logger *slog.Logger
	stop   func()
}

func NewRecorder(page *rod.Page, ctrl *Controller, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		page:   page,
		ctrl:   ctrl,
		logger: logger,
	}
}

// Start begins streaming network responses into the controller. Request
// methods are tracked from the request-will-be-sent event because the
// response event alone does not carry the method.
func (r *Recorder) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.stop = cancel

	methods := make(map[proto.NetworkRequestID]string)

	wait := r.page.Context(ctx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			methods[e.RequestID] = e.Request.Method
		},
		func(e *proto.NetworkResponseReceived) {
			method := methods[e.RequestID]
			delete(methods, e.RequestID)
			body, err := r.responseBody(e.RequestID)
			resp := Response{
				URL:    e.Response.URL,
				Method: method,
				Status: e.Response.Status,
				Body:   body,
			}
			if err != nil || e.Response.Status >= 400 {
				r.logger.Debug("capture: unusable response",
					"url", e.Response.URL, "status", e.Response.Status, "err", err)
				r.ctrl.ObserveFailure(resp)
				return
			}
			r.ctrl.Observe(resp)
		},
	)
	go wait()
}

// Stop detaches the recorder from the page's event stream.
func (r *Recorder) Stop() {
	if r.stop != nil {
		r.stop()
	}
}

func (r *Recorder) responseBody(id proto.NetworkRequestID) ([]byte, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(r.page)
	if err != nil {
		return nil, err
	}
	if res.Base64Encoded {
		return base64.StdEncoding.DecodeString(res.Body)
	}
	return []byte(res.Body), nil
}
