package storage

// Fixed capacity limits shared across the PF/HF/AM layers. MAX_BUFFERS is
// deliberately not one of these: spec.md leaves it configurable, set once
// per engine instance by the bufCap argument to pf.Init, not a compiled-in
// constant.
const (
	// MaxFileNameLength bounds a relation or index file name, enforced by
	// FileTable.CreateFile and FileTable.OpenFile.
	MaxFileNameLength = 80

	// MaxAttrLength bounds a char attribute's length in the AM layer.
	MaxAttrLength = 256

	// MaxScans bounds the number of concurrently open scan descriptors,
	// enforced independently by HF and AM.
	MaxScans = 20
)
