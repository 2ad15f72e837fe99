package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Data {
	partner, mother, subject := uint64(2), uint64(9), uint64(1)
	return &Data{
		Version:      Version,
		Calendar:     Calendar{Year: 4012, Month: 3, Day: 8},
		NextPersonID: 10,
		People: []Person{
			{
				PersonID: 1, TileID: 5, FirstName: "Ada", LastName: "Moss", Sex: "Female",
				BirthYear: 3990, BirthMonth: 2, BirthDay: 4,
				PartnerID: &partner, MotherID: &mother,
				Fertility: &Fertility{LastBirthYear: 4010, LastBirthMonth: 7, ChildrenBorn: 2},
				Pregnancy: &Pregnancy{DueYear: 4012, DueMonth: 9},
			},
			{PersonID: 2, TileID: 5, FirstName: "Bo", LastName: "Moss", Sex: "Male", BirthYear: 3987, BirthMonth: 1, BirthDay: 1},
		},
		Events: []Event{
			{EventType: "marriage", Year: 4005, Month: 1, Day: 1, PersonID: &subject},
			{EventType: "birth", Year: 4010, Month: 7, Day: 3},
		},
	}
}

func TestEncodeText_FieldNames(t *testing.T) {
	raw, err := EncodeText(sample())
	require.NoError(t, err)

	text := string(raw)
	for _, key := range []string{
		`"version":1`, `"next_person_id":10`, `"person_id":1`, `"tile_id":5`,
		`"sex":"Female"`, `"partner_id":2`, `"mother_id":9`, `"children_born":2`,
		`"due_month":9`, `"event_type":"marriage"`,
	} {
		assert.Contains(t, text, key)
	}
	assert.NotContains(t, text, `"partner_id":null`, "absent links are omitted")
}

func TestDecodeText_RoundTrip(t *testing.T) {
	raw, err := EncodeText(sample())
	require.NoError(t, err)
	got, err := DecodeText(raw)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

// person renders a minimal valid person with the given id.
func person(id int) string {
	return fmt.Sprintf(`{"person_id":%d,"tile_id":0,"first_name":"a","last_name":"b","sex":"Male","birth_year":1,"birth_month":1,"birth_day":1}`, id)
}

func TestDecodeText_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"garbage", `not json`, ErrMalformed},
		{"no version", `{"calendar":{"year":1,"month":1,"day":1}}`, ErrMalformed},
		{"future version", `{"version":2,"people":"whatever"}`, ErrUnsupportedVersion},
		{"bad body", `{"version":1,"people":"whatever"}`, ErrMalformed},
		{"bad month", `{"version":1,"calendar":{"year":1,"month":13,"day":1},"people":[],"events":[]}`, ErrMalformed},
		{"bad event", `{"version":1,"calendar":{"year":1,"month":1,"day":1},"next_person_id":1,"people":[],"events":[{"event_type":"coronation","year":1,"month":1,"day":1}]}`, ErrMalformed},
		{"zero next id", `{"version":1,"calendar":{"year":1,"month":1,"day":1},"next_person_id":0,"people":[],"events":[]}`, ErrMalformed},
		{"next id not above people", `{"version":1,"calendar":{"year":1,"month":1,"day":1},"next_person_id":3,"people":[` + person(3) + `],"events":[]}`, ErrMalformed},
		{"zero person id", `{"version":1,"calendar":{"year":1,"month":1,"day":1},"next_person_id":3,"people":[` + person(0) + `],"events":[]}`, ErrMalformed},
		{"duplicate person id", `{"version":1,"calendar":{"year":1,"month":1,"day":1},"next_person_id":3,"people":[` + person(2) + `,` + person(2) + `],"events":[]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeText([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "world.sav")
	in := &File{Version: Version, Seed: 42, World: *sample(), State: []byte(`{"k":"v"}`)}

	n, err := WriteFile(path, in)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), n)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is renamed away")

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.sav")
	_, err := WriteFile(path, &File{Version: Version, Seed: 1, World: *sample()})
	require.NoError(t, err)
	_, err = WriteFile(path, &File{Version: Version, Seed: 2, World: *sample()})
	require.NoError(t, err)

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), out.Seed)
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.sav"))
	assert.ErrorIs(t, err, ErrIO)

	junk := filepath.Join(dir, "junk.sav")
	require.NoError(t, os.WriteFile(junk, []byte{0xc1, 0x00, 0x13}, 0o644))
	_, err = ReadFile(junk)
	assert.ErrorIs(t, err, ErrMalformed)

	future := filepath.Join(dir, "future.sav")
	d := sample()
	_, err = WriteFile(future, &File{Version: 2, Seed: 1, World: *d})
	require.NoError(t, err)
	_, err = ReadFile(future)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
