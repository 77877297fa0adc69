package protocol

// ShouldDropFrameByEpoch implements spec §4.4's exact predicate: a frame is
// dropped when both epochs are set (nonzero) and they disagree. Epoch 0 is
// the "not yet established" sentinel and never triggers a drop either way.
func ShouldDropFrameByEpoch(current, msgEpoch uint64) bool {
	return current > 0 && msgEpoch > 0 && msgEpoch != current
}

// CsdEquals reports whether two CSD payloads are byte-identical (same SPS
// and same PPS), the duplicate-CSD check required by spec §4.4 so a
// repeated reconfigure broadcast does not reset the decoder.
func CsdEquals(a, b Csd) bool {
	return bytesEqual(a.Sps, b.Sps) && bytesEqual(a.Pps, b.Pps)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
