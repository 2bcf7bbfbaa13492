package drawing

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zlnvch/drawguess/canvas"
	"github.com/zlnvch/drawguess/models"
	"github.com/zlnvch/drawguess/surface"
	"github.com/zlnvch/drawguess/transport"
)

// Replayer paints inbound draw events, the author's echo included, onto the
// local surface at its current size.
type Replayer struct {
	surface    surface.Surface
	normalizer *canvas.Normalizer
	log        zerolog.Logger

	mu  sync.Mutex
	sub *transport.Subscription
	t   transport.Transport
}

func NewReplayer(s surface.Surface, log zerolog.Logger) *Replayer {
	return &Replayer{
		surface:    s,
		normalizer: canvas.NewNormalizer(s),
		log:        log.With().Str("component", "replayer").Logger(),
	}
}

func (r *Replayer) Apply(event models.DrawEvent) error {
	event, err := sanitizeEvent(event)
	if err != nil {
		return err
	}

	if event.Action == models.ActionClear {
		r.surface.Clear()
		return nil
	}

	colorHex := event.ColorHex
	if event.Action == models.ActionErase {
		colorHex = surface.Background
	}

	p1 := r.normalizer.Denormalize(event.Start())
	p2 := r.normalizer.Denormalize(event.End())
	return r.surface.DrawLine(p1.X, p1.Y, p2.X, p2.Y, colorHex, float64(event.Width))
}

// HandlePayload decodes a draw event data object and applies it. Bad
// payloads are logged and dropped.
func (r *Replayer) HandlePayload(payload json.RawMessage) {
	var event models.DrawEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		r.log.Warn().Err(err).Msg("Invalid draw payload")
		return
	}
	if err := r.Apply(event); err != nil {
		r.log.Warn().Err(err).Int("action", int(event.Action)).Msg("Draw event not applied")
	}
}

// Attach subscribes the replayer to draw events of t. Attaching again moves
// the subscription.
func (r *Replayer) Attach(t transport.Transport) {
	r.Detach()

	sub := t.Subscribe(transport.EventDraw, r.HandlePayload)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sub = &sub
	r.t = t
}

func (r *Replayer) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		r.t.Unsubscribe(*r.sub)
		r.sub = nil
		r.t = nil
	}
}
