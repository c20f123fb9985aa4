package registry

// RemoteFileEntry is a file of a model's artifact tree.
type RemoteFileEntry struct {
	// Path is the slash-separated path relative to the model root.
	Path string
}

// ModelManifest lists the files of a model in the order the registry returned them.
type ModelManifest struct {
	ModelID  string
	Revision string
	// SHA is the commit the registry resolved the model to. It may be empty.
	SHA   string
	Files []RemoteFileEntry
}

// siblingFile is a file in the model repository.
type siblingFile struct {
	RFilename string `json:"rfilename"`
}

// modelInfo is the body of the model lookup response. Fields that are not
// needed to build a manifest are omitted.
type modelInfo struct {
	ID       string        `json:"id"`
	ModelID  string        `json:"modelId"`
	SHA      string        `json:"sha"`
	Disabled bool          `json:"disabled"`
	Siblings []siblingFile `json:"siblings"`
}
