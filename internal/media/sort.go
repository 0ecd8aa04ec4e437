package media

import "sort"

// protocolRank breaks ties between equal renditions delivered over
// different protocols. Lower is better.
var protocolRank = map[Protocol]int{
	ProtocolHTTP: 0,
	ProtocolHLS:  1,
	ProtocolDASH: 2,
	ProtocolISM:  3,
	ProtocolHDS:  4,
}

// SortFormats orders formats best-first: height, then bitrate, then
// protocol preference, then format id. The order is total, so identical
// input always produces identical output.
func SortFormats(formats []Format) {
	sort.SliceStable(formats, func(i, j int) bool {
		a, b := formats[i], formats[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.Bitrate != b.Bitrate {
			return a.Bitrate > b.Bitrate
		}
		if protocolRank[a.Protocol] != protocolRank[b.Protocol] {
			return protocolRank[a.Protocol] < protocolRank[b.Protocol]
		}
		return a.ID < b.ID
	})
}
