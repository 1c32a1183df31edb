package ai

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

type hashPayload struct {
	Type       enums.GenerationType `json:"type"`
	Plan       enums.PlanID         `json:"plan"`
	FormInputs map[string]string    `json:"form_inputs"`
	Prompts    Prompts              `json:"prompts"`
}

// InputHash is the hex BLAKE2b-256 of the canonical JSON request. Map keys
// marshal sorted, so equal inputs always hash equally.
func InputHash(genType enums.GenerationType, plan enums.PlanID, form map[string]string, prompts Prompts) (string, error) {
	if form == nil {
		form = map[string]string{}
	}
	raw, err := json.Marshal(hashPayload{Type: genType, Plan: plan, FormInputs: form, Prompts: prompts})
	if err != nil {
		return "", fmt.Errorf("encode hash payload: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
