package hcl

// fileRoot is the top-level structure of a gulpfile.hcl. Unknown blocks and
// attributes are decode errors.
type fileRoot struct {
	Server  *serverBlock  `hcl:"server,block"`
	Style   *styleBlock   `hcl:"style,block"`
	Script  *scriptBlock  `hcl:"script,block"`
	Images  *imagesBlock  `hcl:"images,block"`
	Tasks   []*taskBlock  `hcl:"task,block"`
	Watches []*watchBlock `hcl:"watch,block"`
}

// Attributes are pointers so that an unset attribute keeps the default.

type serverBlock struct {
	BaseDir         *string `hcl:"base_dir,optional"`
	Host            *string `hcl:"host,optional"`
	Port            *int    `hcl:"port,optional"`
	ClientScriptURL *string `hcl:"client_script_url,optional"`
}

type styleBlock struct {
	Entry      *string           `hcl:"entry,optional"`
	Watch      *string           `hcl:"watch,optional"`
	Dest       *string           `hcl:"dest,optional"`
	SassBinary *string           `hcl:"sass_binary,optional"`
	Targets    map[string]string `hcl:"targets,optional"`
}

type scriptBlock struct {
	Entry  *string `hcl:"entry,optional"`
	Watch  *string `hcl:"watch,optional"`
	Dest   *string `hcl:"dest,optional"`
	Target *string `hcl:"target,optional"`
}

type imagesBlock struct {
	Src      *string `hcl:"src,optional"`
	Watch    *string `hcl:"watch,optional"`
	Dest     *string `hcl:"dest,optional"`
	Quality  *int    `hcl:"quality,optional"`
	MaxWidth *int    `hcl:"max_width,optional"`
}

// taskBlock declares a group: `task "build" { series = ["css", "js"] }`.
// Exactly one of series and parallel must be set.
type taskBlock struct {
	Name        string   `hcl:"name,label"`
	Series      []string `hcl:"series,optional"`
	Parallel    []string `hcl:"parallel,optional"`
	Description *string  `hcl:"description,optional"`
}

type watchBlock struct {
	Name    string   `hcl:"name,label"`
	Pattern string   `hcl:"pattern"`
	Tasks   []string `hcl:"tasks"`
	Reload  *bool    `hcl:"reload,optional"`
}
