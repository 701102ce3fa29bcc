// Package files discovers dataset files under a data directory.
//
// Discovery lists JSON, JSON-lines and CSV files matching a glob pattern and
// reports the date embedded in each file name (a YYYYMMDD run), so daily
// exports can be loaded in chronological order:
//
//	d := files.NewDiscovery("/var/lib/dashcli")
//	found, err := d.FindDataFiles("sales_*.csv")
//	paths := files.Paths("/var/lib/dashcli", found)
package files
