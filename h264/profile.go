package h264

import "fmt"

// HasChromaInfo reports whether an SPS with this profile_idc carries the
// chroma_format_idc / bit depth / scaling matrix block.
func HasChromaInfo(profileIDC uint8) bool {
	switch profileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

var profileNames = map[uint8]string{
	44:  "CAVLC 4:4:4 Intra Profile",
	66:  "Baseline Profile",
	77:  "Main Profile",
	83:  "Scalable Baseline Profile",
	86:  "Scalable High Profile",
	88:  "Extended Profile",
	100: "High Profile",
	110: "High 10 Profile",
	118: "Multiview High Profile",
	122: "High 4:2:2 Profile",
	128: "Stereo High Profile",
	134: "MFC High Profile",
	135: "MFC Depth High Profile",
	138: "Multiview Depth High Profile",
	139: "Enhanced Multiview Depth High Profile",
	244: "High 4:4:4 Predictive Profile",
}

func ProfileName(profileIDC uint8) string {
	if name, ok := profileNames[profileIDC]; ok {
		return name
	}
	return fmt.Sprintf("Unknown profile (%d)", profileIDC)
}

var chromaFormatNames = map[uint32]string{
	0: "Monochrome",
	1: "YUV 4:2:0",
	2: "YUV 4:2:2",
	3: "YUV 4:4:4",
}

func ChromaFormatName(idc uint32) string {
	if name, ok := chromaFormatNames[idc]; ok {
		return name
	}
	return "Unknown"
}

// Table E-1
var sampleAspectRatios = [...]string{
	"Unspecified", "1:1", "12:11", "10:11", "16:11", "40:33", "24:11", "20:11",
	"32:11", "80:33", "18:11", "15:11", "64:33", "160:99", "4:3", "3:2", "2:1",
}

// AspectRatioName renders aspect_ratio_idc; Extended_SAR (255) is rendered by
// VUIInfo.SampleAspectRatio from sar_width and sar_height.
func AspectRatioName(idc uint8) string {
	if int(idc) < len(sampleAspectRatios) {
		return sampleAspectRatios[idc]
	}
	if idc == extendedSAR {
		return "Extended_SAR"
	}
	return "Reserved"
}

// LevelName renders level_idc as the dotted level number, e.g. 31 -> "3.1".
// Level 1b is signalled with level_idc 11 and constraint_set3_flag in the
// Baseline, Main and Extended profiles.
func LevelName(levelIDC uint8, profileIDC uint8, constraintSet3 bool) string {
	if levelIDC == 11 && constraintSet3 && (profileIDC == 66 || profileIDC == 77 || profileIDC == 88) {
		return "1b"
	}
	if levelIDC == 9 {
		return "1b"
	}
	return fmt.Sprintf("%d.%d", levelIDC/10, levelIDC%10)
}
