package fixture

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/kart-discounts/internal/wire"
)

// Decode reads scenarios from r. The document is either an array of scenario
// objects or an object with a "scenarios" array. A scenario object carries
// "name", "description" and the quote fields.
func Decode(r io.Reader) ([]Scenario, error) {
	d := jx.Decode(r, 4096)

	var scenarios []Scenario
	var err error
	switch d.Next() {
	case jx.Array:
		scenarios, err = decodeScenarios(d)
	case jx.Object:
		err = d.Obj(func(d *jx.Decoder, key string) error {
			if key != "scenarios" {
				return d.Skip()
			}
			var err error
			scenarios, err = decodeScenarios(d)
			return err
		})
	default:
		return nil, errors.Errorf("unexpected %s at document root", d.Next())
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode scenarios")
	}
	return scenarios, nil
}

func decodeScenarios(d *jx.Decoder) ([]Scenario, error) {
	var out []Scenario
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := decodeScenario(d)
		if err != nil {
			return errors.Wrapf(err, "scenario %d", len(out))
		}
		if s.Name == "" {
			s.Name = "scenario-" + strconv.Itoa(len(out))
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func decodeScenario(d *jx.Decoder) (Scenario, error) {
	var s Scenario
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			s.Name, err = d.Str()
		case "description":
			s.Description, err = d.Str()
		default:
			var ok bool
			ok, err = wire.DecodeQuoteField(d, key, &s.Quote)
			if err == nil && !ok {
				err = d.Skip()
			}
		}
		return err
	})
	return s, err
}

// LoadFile reads scenarios from a JSON file. Files ending in .gz are
// decompressed first.
func LoadFile(path string) ([]Scenario, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scenarios, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return scenarios, nil
}
