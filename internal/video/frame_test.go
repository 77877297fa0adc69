package video

import (
	"testing"

	"github.com/nordlyslabs/camviewer/internal/protocol"
)

func TestFromProtocol(t *testing.T) {
	pf := protocol.Frame{Epoch: 3, Seq: 7, IsKey: true, TsUs: 10, SrvMs: 20, CapMs: 30, AgeMs: 40, Payload: []byte{1, 2}}
	f := FromProtocol(pf)
	if f.Epoch != 3 || f.Seq != 7 || !f.IsKey || f.SendTsUs != 10 || f.ServerSendMs != 20 || f.CaptureServerMs != 30 || f.AgeAtSendMs != 40 || len(f.Payload) != 2 {
		t.Fatalf("unexpected conversion: %+v", f)
	}
}
