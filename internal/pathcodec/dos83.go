package pathcodec

import "bytes"

// shorten83 applies 8.3 shortening to each '/'-separated segment of
// an already legacy-encoded path. Per original_source/quazip's
// quaziptextcodec.cpp (see SPEC_FULL.md's grounding notes), the length
// checks operate on the codec-encoded byte length, not the UTF-8 rune
// count, so this runs on the bytes produced by the legacy codec, not
// on the original string.
func shorten83(legacy []byte) []byte {
	segments := bytes.Split(legacy, []byte("/"))
	for i, seg := range segments {
		segments[i] = shorten83Segment(seg)
	}
	return bytes.Join(segments, []byte("/"))
}

func shorten83Segment(seg []byte) []byte {
	dot := bytes.LastIndexByte(seg, '.')
	var name, ext []byte
	hasExt := dot >= 0
	if hasExt {
		name, ext = seg[:dot], seg[dot+1:]
	} else {
		name = seg
	}
	if len(name) > 8 {
		name = append(append([]byte{}, name[:6]...), '~', '1')
	}
	if len(ext) > 3 {
		ext = append(append([]byte{}, ext[:2]...), '~', '1')
	}
	if !hasExt {
		return name
	}
	out := make([]byte, 0, len(name)+1+len(ext))
	out = append(out, name...)
	out = append(out, '.')
	out = append(out, ext...)
	return out
}
