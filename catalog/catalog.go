package catalog

// A Badge is a single remote-sourced chat badge, identified by a stable
// composite id ("{set_id}:{version_id}"). Badges are immutable once fetched;
// every fetch returns the full current list.
type Badge struct {
	ID       string
	Name     string
	Kind     string
	ImageURL string
}

const KindGlobal = "Global"
