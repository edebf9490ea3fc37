package heap

type fakeObj struct {
	hdr Header
	kid *fakeObj
}

func (f *fakeObj) GCHeader() *Header { return &f.hdr }
func (f *fakeObj) MarkChildren(visit func(GCObject)) {
	if f.kid != nil {
		visit(f.kid)
	}
}

type recordingObserver struct{ events []Event }

func (o *recordingObserver) OnHeapEvent(e Event) { o.events = append(o.events, e) }

func newFakeObj(t HeapType) *fakeObj {
	return &fakeObj{hdr: newHeader(t)}
}
