package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/rigado/winc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON}
}

// print writes v as indented json, or runs text for the plain form.
func (p *printer) print(v interface{}, text func(w io.Writer)) error {
	if !p.json {
		text(p.w)
		return nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.w, "%s\n", b)
	return err
}

func (p *printer) networks(rs []winc.ScanResult) error {
	return p.print(rs, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSSID\tRSSI\tAUTH\tCH")
		for _, r := range rs {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%v\t%d\n", r.Index, r.SSID, r.RSSI, r.Auth, r.Channel)
		}
		tw.Flush()
	})
}

// result is the outcome of a connect-like command.
type result struct {
	Status winc.Status `json:"status"`
	Mode   winc.Mode   `json:"mode"`
	Error  string      `json:"error,omitempty"`
}

func (p *printer) result(st winc.Status, mode winc.Mode, err error) error {
	r := result{Status: st, Mode: mode}
	if err != nil {
		r.Error = err.Error()
	}
	if perr := p.print(r, func(w io.Writer) {
		fmt.Fprintf(w, "%v (%v)\n", st, mode)
	}); perr != nil {
		return perr
	}
	return err
}
