package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed acts.toml
var embeddedActs string

var (
	ErrActNotFound   = errors.New("catalog: act not found")
	ErrDuplicateCode = errors.New("catalog: duplicate act code")
)

// DefaultSuggestLimit caps editor suggestions.
const DefaultSuggestLimit = 5

type tableFile struct {
	Acts []Act `toml:"act"`
}

// Catalog is an ordered, immutable act table.
type Catalog struct {
	acts   []Act
	byCode map[string]int
}

// Load decodes the embedded table.
func Load() (*Catalog, error) {
	return parse(embeddedActs, "embedded acts.toml")
}

// MustLoad is Load for package init paths and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile decodes a table from path, replacing the embedded one.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed (%s): %w", path, err)
	}
	return parse(string(data), path)
}

// New builds a catalog from acts, enforcing the same checks as file loading.
func New(acts []Act) (*Catalog, error) {
	c := &Catalog{
		acts:   make([]Act, 0, len(acts)),
		byCode: make(map[string]int, len(acts)),
	}
	for _, act := range acts {
		if err := act.validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byCode[act.Code]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, act.Code)
		}
		if act.Keywords == nil {
			act.Keywords = []string{}
		}
		c.byCode[act.Code] = len(c.acts)
		c.acts = append(c.acts, act)
	}
	return c, nil
}

// WriteTable encodes acts in the format LoadFile reads, for override tables.
func WriteTable(w io.Writer, acts []Act) error {
	if err := toml.NewEncoder(w).Encode(tableFile{Acts: acts}); err != nil {
		return fmt.Errorf("catalog encode failed: %w", err)
	}
	return nil
}

func parse(data, source string) (*Catalog, error) {
	var file tableFile
	meta, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("catalog parse failed (%s): %w", source, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("catalog parse failed (%s): unknown keys %s", source, strings.Join(keys, ", "))
	}
	c, err := New(file.Acts)
	if err != nil {
		return nil, fmt.Errorf("catalog invalid (%s): %w", source, err)
	}
	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.acts)
}

// All returns a copy of the table in file order.
func (c *Catalog) All() []Act {
	out := make([]Act, len(c.acts))
	copy(out, c.acts)
	return out
}

func (c *Catalog) Lookup(code string) (Act, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Act{}, false
	}
	return c.acts[i], true
}

// Get is Lookup with ErrActNotFound.
func (c *Catalog) Get(code string) (Act, error) {
	act, ok := c.Lookup(code)
	if !ok {
		return Act{}, fmt.Errorf("%w: %s", ErrActNotFound, code)
	}
	return act, nil
}
