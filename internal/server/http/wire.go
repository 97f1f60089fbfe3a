package httpserver

import (
	"encoding/json"

	"github.com/ajdavis/chirp/internal/chirpstore"
	"github.com/ajdavis/chirp/internal/hub"
)

// envelope is the websocket frame shape.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// chirpJSON is one chirp on the wire; ID and timestamp travel as strings.
type chirpJSON struct {
	ID  string `json:"id"`
	Msg string `json:"msg"`
	Ts  string `json:"ts"`
}

func toChirpJSON(r chirpstore.Record) chirpJSON {
	return chirpJSON{
		ID:  r.ID.String(),
		Msg: r.Msg,
		Ts:  r.Ts.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func toChirpList(recs []chirpstore.Record) []chirpJSON {
	out := make([]chirpJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, toChirpJSON(r))
	}
	return out
}

// encodeEvent turns a hub event into a wire frame. Chirps ride under a
// "chirps" list, cleared carries an empty object, app_error a string.
func encodeEvent(ev hub.Event) ([]byte, error) {
	var data any
	switch ev.Name {
	case hub.EventChirps:
		data = map[string][]chirpJSON{"chirps": toChirpList(ev.Records)}
	case hub.EventAppError:
		data = ev.Message
	default:
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: ev.Name, Data: raw})
}

// clientIntent is what a websocket client may send us.
type clientIntent struct {
	Intent string `json:"intent"`
	Filter string `json:"filter"`
}
