package media

import (
	"reflect"
	"testing"
)

func TestSortFormatsOrdering(t *testing.T) {
	formats := []Format{
		{ID: "HLS-360", Protocol: ProtocolHLS, Height: 360, Bitrate: 800_000},
		{ID: "DASH-720", Protocol: ProtocolDASH, Height: 720, Bitrate: 2_500_000},
		{ID: "HLS-720", Protocol: ProtocolHLS, Height: 720, Bitrate: 2_500_000},
		{ID: "raw", Protocol: ProtocolHTTP, Height: 0},
	}

	SortFormats(formats)

	want := []string{"HLS-720", "DASH-720", "HLS-360", "raw"}
	for i, id := range want {
		if formats[i].ID != id {
			t.Errorf("formats[%d].ID = %q, want %q", i, formats[i].ID, id)
		}
	}
}

func TestSortFormatsDeterministic(t *testing.T) {
	build := func() []Format {
		return []Format{
			{ID: "b", Protocol: ProtocolHLS, Height: 720},
			{ID: "a", Protocol: ProtocolHLS, Height: 720},
			{ID: "c", Protocol: ProtocolDASH, Height: 1080},
		}
	}

	first := build()
	SortFormats(first)

	// Same input sorted again must yield a byte-identical list.
	for i := 0; i < 10; i++ {
		next := build()
		SortFormats(next)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d produced different order: %v vs %v", i, next, first)
		}
	}

	if first[0].ID != "c" || first[1].ID != "a" || first[2].ID != "b" {
		t.Errorf("unexpected order: %v", first)
	}
}
