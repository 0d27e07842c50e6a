package api

// Manifest is the JSON description of an archive's bundle layout.
// Hashes are hex strings; chunk ids are UUID strings.
type Manifest struct {
	// Bundles in discovery order. A null entry stands for a bundle whose
	// description is unavailable.
	Bundles []*Bundle `json:"bundles"`
	// Chunks not tied to any single bundle (e.g. shared streaming data).
	Chunks []Chunk `json:"chunks,omitempty"`
}

// Bundle describes one bundle and the assets it contains.
type Bundle struct {
	Name string `json:"name"`
	// Type is "sublevel", "blueprint" or "shared"; empty means untyped.
	Type string `json:"type,omitempty"`
	// SuperBundle names the owning superbundle for archive-based sources.
	// Manifest-based sources leave it empty.
	SuperBundle string     `json:"superbundle,omitempty"`
	Ebx         []Asset    `json:"ebx,omitempty"`
	Res         []Asset    `json:"res,omitempty"`
	Chunks      []Chunk    `json:"chunks,omitempty"`
}

// Asset is the common description of an ebx or res entry.
type Asset struct {
	Name         string     `json:"name"`
	Type         string     `json:"type,omitempty"`
	Sha1         string     `json:"sha1,omitempty"`
	BaseSha1     string     `json:"base_sha1,omitempty"`
	Size         int64      `json:"size,omitempty"`
	OriginalSize int64      `json:"original_size,omitempty"`
	Inline       bool       `json:"inline,omitempty"`
	Location     string     `json:"location,omitempty"`
	Extra        *ExtraData `json:"extra,omitempty"`
}

// Chunk describes a raw chunk.
type Chunk struct {
	ID            string `json:"id"`
	Sha1          string `json:"sha1,omitempty"`
	Size          int64  `json:"size,omitempty"`
	LogicalOffset uint32 `json:"logical_offset,omitempty"`
	LogicalSize   uint32 `json:"logical_size,omitempty"`
	RangeStart    uint32 `json:"range_start,omitempty"`
	RangeEnd      uint32 `json:"range_end,omitempty"`
	FirstMip      int32  `json:"first_mip,omitempty"`
	// H32 is the name hash of the owning ebx/res asset, if known.
	H32          uint32     `json:"h32,omitempty"`
	Inline       bool       `json:"inline,omitempty"`
	Location     string     `json:"location,omitempty"`
	SuperBundles []int      `json:"superbundles,omitempty"`
	Extra        *ExtraData `json:"extra,omitempty"`
}

// ExtraData is present only for patch-style assets.
type ExtraData struct {
	BaseSha1      string `json:"base_sha1,omitempty"`
	DeltaSha1     string `json:"delta_sha1,omitempty"`
	DataOffset    int64  `json:"data_offset,omitempty"`
	SuperBundleID int    `json:"superbundle_id,omitempty"`
	IsPatch       bool   `json:"is_patch,omitempty"`
	CasPath       string `json:"cas_path,omitempty"`
}
