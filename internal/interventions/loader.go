// Package interventions loads the static action-card catalog.
package interventions

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
)

//go:embed data/library.json
var defaultLibrary []byte

// collectionKey is the required top-level key of a catalog document.
const collectionKey = "interventions"

// Library is an immutable, ordered catalog of action cards.
type Library struct {
	cards []model.ActionCard
}

// Load reads a catalog from path.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errx.NotFound(fmt.Sprintf("intervention library not found: %s", path))
		}
		return nil, fmt.Errorf("read intervention library: %w", err)
	}
	return Parse(data)
}

// LoadDefault returns the catalog compiled into the binary.
func LoadDefault() (*Library, error) {
	return Parse(defaultLibrary)
}

// Parse validates and decodes a catalog document.
func Parse(data []byte) (*Library, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errx.Schema(fmt.Sprintf("invalid library json: %v", err))
	}
	raw, ok := doc[collectionKey]
	if !ok {
		return nil, errx.Schema("invalid library: missing 'interventions'")
	}

	var cards []model.ActionCard
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, errx.Schema(fmt.Sprintf("invalid library 'interventions': %v", err))
	}
	return &Library{cards: cards}, nil
}

// New builds a library from cards already in memory. The slice is copied.
func New(cards []model.ActionCard) *Library {
	return &Library{cards: append([]model.ActionCard(nil), cards...)}
}

// Filter returns the cards matching driver and band exactly, in catalog order.
func (l *Library) Filter(driver model.Driver, band model.Band) []model.ActionCard {
	var out []model.ActionCard
	for _, c := range l.cards {
		if c.Driver == driver && c.NeuroticismBand == band {
			out = append(out, c)
		}
	}
	return out
}

// All returns every card in catalog order.
func (l *Library) All() []model.ActionCard {
	return append([]model.ActionCard(nil), l.cards...)
}

func (l *Library) Len() int {
	return len(l.cards)
}
