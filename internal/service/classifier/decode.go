package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/service/llm"
	appErrors "dreamlog-backend/pkg/errors"
)

// wirePattern is the collaborator's answer schema. Pointer fields distinguish a missing field
// from its zero value.
type wirePattern struct {
	Type       *string   `json:"type" validate:"required,oneof=nightmare recurring normal"`
	Themes     *[]string `json:"themes" validate:"required,max=5"`
	Emotions   *[]string `json:"emotions" validate:"required,max=5"`
	Symbols    *[]string `json:"symbols" validate:"required,max=5"`
	Confidence *float64  `json:"confidence" validate:"required,gte=0,lte=1"`
}

var validate = validator.New()

// Decode turns any collaborator reply into a DreamPattern. Both reply shapes are handled here
// and nowhere else. Every failure is a MALFORMED_RESPONSE error.
func Decode(reply llm.Reply) (dream.DreamPattern, error) {
	var answer string
	var ok bool
	switch reply.Kind {
	case llm.ReplyText, llm.ReplyReasoning:
		answer, ok = reply.Answer()
	default:
		return dream.DreamPattern{}, appErrors.NewMalformedResponse(fmt.Sprintf("unknown reply kind %s", reply.Kind), nil)
	}
	if !ok {
		return dream.DreamPattern{}, appErrors.NewMalformedResponse("empty "+reply.Kind.String()+" reply", nil)
	}

	body := stripFence(answer)
	if body == "" {
		return dream.DreamPattern{}, appErrors.NewMalformedResponse("reply holds only a code fence", nil)
	}

	var wire wirePattern
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&wire); err != nil {
		return dream.DreamPattern{}, appErrors.NewMalformedResponse("reply is not a JSON object", err)
	}
	if dec.More() {
		return dream.DreamPattern{}, appErrors.NewMalformedResponse("trailing data after JSON object", nil)
	}
	if err := validate.Struct(wire); err != nil {
		return dream.DreamPattern{}, appErrors.NewMalformedResponse("reply violates pattern schema", err)
	}

	return dream.DreamPattern{
		Type:       dream.PatternType(*wire.Type),
		Themes:     dream.NormalizeSet(*wire.Themes),
		Emotions:   dream.NormalizeSet(*wire.Emotions),
		Symbols:    dream.NormalizeSet(*wire.Symbols),
		Confidence: *wire.Confidence,
	}, nil
}

// stripFence removes a surrounding markdown code fence, with or without a language tag.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. "json"
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
