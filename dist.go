package dist

// Repo names one repository of dists. Path is either an HTTP(S) URL
// (e.g. https://repo.luadist.org/), a file:// URL, a local directory of
// extracted or archived dists, or the directory of a single unpacked dist.
type Repo struct {
	Path string
}

func (r Repo) String() string { return r.Path }

// Platform describes the host a deployment targets. Arch is an operating
// system family identifier (e.g. Linux, Windows, MacOSX) and Type a binary
// flavor (e.g. x86, x86_64). Dists with arch Universal or type source/all
// install on every platform.
type Platform struct {
	Arch string
	Type string
}
