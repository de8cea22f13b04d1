// Package ebml decodes the variable-length-integer (VINT) element
// headers of the Extensible Binary Meta Language, the container syntax
// underlying Matroska (spec §4.2, §6).
package ebml

// Element IDs this core needs to recognize while walking a Matroska
// stream. Values and names follow the Matroska specification and the
// reference decoders in the example pack (luispater/matroska-go's
// ebml.go, pixelbender/go-matroska's matroska package).
const (
	IDEBMLHeader = 0x1A45DFA3

	IDSegment = 0x18538067

	IDSeekHead = 0x114D9B74
	IDSeek     = 0x4DBB
	IDSeekID   = 0x53AB
	IDSeekPos  = 0x53AC

	IDSegmentInfo    = 0x1549A966
	IDTimecodeScale  = 0x2AD7B1

	IDTracks        = 0x1654AE6B
	IDTrackEntry    = 0xAE
	IDTrackNumber   = 0xD7
	IDTrackType     = 0x83
	IDTrackName     = 0x536E
	IDTrackLanguage = 0x22B59C
	IDTrackLanguageBCP47 = 0x22B59D
	IDCodecID       = 0x86
	IDCodecPrivate  = 0x63A2
	IDFlagDefault   = 0x88
	IDFlagForced    = 0x55AA
	IDDefaultDuration = 0x23E383

	IDCluster       = 0x1F43B675
	IDClusterTimestamp = 0xE7
	IDSimpleBlock   = 0xA3
	IDBlockGroup    = 0xA0
	IDBlock         = 0xA1
	IDBlockDuration = 0x9B

	IDCues     = 0x1C53BB6B
	IDCuePoint = 0xBB
	IDCueTime  = 0xB3
	IDCueTrackPositions = 0xB7
	IDCueTrack = 0xF7
	IDCueClusterPosition = 0xF1

	IDChapters    = 0x1043A770
	IDTags        = 0x1254C367
	IDAttachments = 0x1941A469
)

// TrackTypeSubtitle is the Matroska TrackType value for subtitle
// tracks (spec §6: "TrackType 17 ≡ subtitle").
const TrackTypeSubtitle = 17

// topLevelSegmentChildren is the set of element IDs that can legally
// follow a Segment child at the top level. It bounds an unknown-size
// Cluster: per spec §4.3, "a Cluster whose size is unknown terminates
// at the next top-level element ID that is not a valid Cluster child";
// this is the conservative stopping rule the spec explicitly allows.
var topLevelSegmentChildren = map[uint32]bool{
	IDSeekHead:    true,
	IDSegmentInfo: true,
	IDTracks:      true,
	IDCluster:     true,
	IDCues:        true,
	IDChapters:    true,
	IDTags:        true,
	IDAttachments: true,
}

// IsTopLevelSegmentChild reports whether id can appear directly under
// Segment, i.e. is a valid sentinel for terminating an unknown-size
// Cluster.
func IsTopLevelSegmentChild(id uint32) bool {
	return topLevelSegmentChildren[id]
}
