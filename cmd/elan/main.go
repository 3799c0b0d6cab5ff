// Command elan is the CLI tool for working with ELAN annotation files.
// It provides commands for inspecting documents, editing tiers and
// segments, linking audio, and converting between formats.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/tierline/elan/core/audio"
	"github.com/tierline/elan/core/eaf"
	"github.com/tierline/elan/core/export"
	"github.com/tierline/elan/core/rttm"
	"github.com/tierline/elan/internal/logging"
)

// CLI defines the command-line interface for elan.
var CLI struct {
	// Global flags
	Verbose bool `name:"verbose" short:"v" help:"Enable debug logging"`
	JSONLog bool `name:"json-log" help:"Emit logs as JSON"`

	// Command groups (noun-first organization)
	Inspect  InspectCmd    `cmd:"" help:"Show a document summary"`
	Tiers    TiersGroup    `cmd:"" help:"Tier operations (list, add, remove)"`
	Segments SegmentsGroup `cmd:"" help:"Segment operations (list, add, remove, split)"`
	Audio    AudioGroup    `cmd:"" help:"Audio operations (info, link)"`
	Convert  ConvertCmd    `cmd:"" help:"Convert between EAF, RTTM, text, and SQLite"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// TiersGroup contains tier catalog operations.
type TiersGroup struct {
	List   TiersListCmd   `cmd:"" help:"List tiers in a document"`
	Add    TiersAddCmd    `cmd:"" help:"Add tiers to a document"`
	Remove TiersRemoveCmd `cmd:"" help:"Remove tiers from a document"`
}

// SegmentsGroup contains segment store operations.
type SegmentsGroup struct {
	List   SegmentsListCmd   `cmd:"" help:"List segments in a document"`
	Add    SegmentsAddCmd    `cmd:"" help:"Add a segment to a document"`
	Remove SegmentsRemoveCmd `cmd:"" help:"Remove a segment from a document"`
	Split  SegmentsSplitCmd  `cmd:"" help:"Split a segment in two"`
}

// AudioGroup contains linked-media operations.
type AudioGroup struct {
	Info AudioInfoCmd `cmd:"" help:"Show the linked audio stream description"`
	Link AudioLinkCmd `cmd:"" help:"Link an audio file into a document"`
}

// InspectCmd shows a document summary.
type InspectCmd struct {
	Path string `arg:"" help:"Path to .eaf file" type:"existingfile"`
}

func (c *InspectCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}

	checksum, err := doc.Checksum()
	if err != nil {
		return err
	}

	fmt.Printf("Document: %s\n", doc.Path())
	if doc.Author() != "" {
		fmt.Printf("Author:   %s\n", doc.Author())
	}
	if doc.Date() != "" {
		fmt.Printf("Date:     %s\n", doc.Date())
	}
	if doc.AudioPath() != "" {
		fmt.Printf("Audio:    %s\n", doc.AudioPath())
	}
	fmt.Printf("Checksum: %s\n", checksum)

	fmt.Println()
	fmt.Println("Tiers")
	fmt.Println("-----")
	for _, name := range doc.TierNames() {
		segments := len(doc.SegmentsForTier(name))
		if subtier, ok := doc.Subtier(name); ok {
			fmt.Printf("  %s (parent: %s, %d segments)\n", name, subtier.Parent, segments)
		} else {
			fmt.Printf("  %s (%d segments)\n", name, segments)
		}
	}
	fmt.Printf("\nSegments: %d\n", doc.Len())
	return nil
}

// TiersListCmd lists tiers.
type TiersListCmd struct {
	Path string `arg:"" help:"Path to .eaf file" type:"existingfile"`
}

func (c *TiersListCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}
	for _, name := range doc.TierNames() {
		fmt.Println(name)
	}
	return nil
}

// TiersAddCmd adds tiers.
type TiersAddCmd struct {
	Path  string   `arg:"" help:"Path to .eaf file" type:"existingfile"`
	Names []string `arg:"" help:"Tier names to add"`
}

func (c *TiersAddCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}
	doc.AddTiers(c.Names)
	return doc.Save()
}

// TiersRemoveCmd removes tiers.
type TiersRemoveCmd struct {
	Path  string   `arg:"" help:"Path to .eaf file" type:"existingfile"`
	Names []string `arg:"" help:"Tier names to remove"`
}

func (c *TiersRemoveCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}
	doc.RemoveTiers(c.Names...)
	return doc.Save()
}

// SegmentsListCmd lists segments.
type SegmentsListCmd struct {
	Path string `arg:"" help:"Path to .eaf file" type:"existingfile"`
	Tier string `help:"Only list segments on this tier"`
}

func (c *SegmentsListCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}

	var filter export.Filter
	if c.Tier != "" {
		filter = export.TierFilter(c.Tier)
	}
	formatter := func(seg eaf.Segment) string {
		return fmt.Sprintf("%s\t%s\t%d\t%d\t%s", seg.ID, seg.Tier, seg.Start, seg.End, seg.Text)
	}
	return export.WriteText(os.Stdout, doc, filter, formatter)
}

// SegmentsAddCmd adds one segment.
type SegmentsAddCmd struct {
	Path  string `arg:"" help:"Path to .eaf file" type:"existingfile"`
	Tier  string `arg:"" help:"Tier name (created if missing)"`
	Start int    `arg:"" help:"Start time in milliseconds"`
	End   int    `arg:"" help:"End time in milliseconds"`
	Text  string `help:"Annotation text"`
}

func (c *SegmentsAddCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}
	if err := doc.AddSegment(c.Tier, c.Start, c.End, c.Text); err != nil {
		return err
	}
	return doc.Save()
}

// SegmentsRemoveCmd removes one segment.
type SegmentsRemoveCmd struct {
	Path string `arg:"" help:"Path to .eaf file" type:"existingfile"`
	ID   string `arg:"" help:"Segment id (e.g. a3)"`
}

func (c *SegmentsRemoveCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}
	if err := doc.RemoveSegment(c.ID); err != nil {
		return err
	}
	return doc.Save()
}

// SegmentsSplitCmd splits one segment.
type SegmentsSplitCmd struct {
	Path     string  `arg:"" help:"Path to .eaf file" type:"existingfile"`
	ID       string  `arg:"" help:"Segment id (e.g. a3)"`
	At       int     `help:"Split point in milliseconds" xor:"point"`
	Fraction float64 `help:"Split point as a fraction of the interval (0, 1)" xor:"point"`
}

func (c *SegmentsSplitCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}

	switch {
	case c.At != 0:
		err = doc.SplitSegment(c.ID, c.At)
	case c.Fraction != 0:
		err = doc.SplitSegmentFraction(c.ID, c.Fraction)
	default:
		return fmt.Errorf("one of --at or --fraction is required")
	}
	if err != nil {
		return err
	}
	return doc.Save()
}

// AudioInfoCmd shows the linked audio description.
type AudioInfoCmd struct {
	Path string `arg:"" help:"Path to .eaf or .wav file" type:"existingfile"`
}

func (c *AudioInfoCmd) Run() error {
	wavPath := c.Path
	if strings.HasSuffix(c.Path, ".eaf") {
		doc, err := eaf.FromFile(c.Path)
		if err != nil {
			return err
		}
		if doc.AudioPath() == "" {
			return fmt.Errorf("document has no linked audio")
		}
		wavPath = doc.AudioPath()
	}

	info, err := audio.ReadInfo(wavPath)
	if err != nil {
		return err
	}
	fmt.Printf("File:        %s\n", wavPath)
	fmt.Printf("Channels:    %d\n", info.Channels)
	fmt.Printf("Sample rate: %d Hz\n", info.SampleRate)
	fmt.Printf("Sample size: %d bytes\n", info.SampleWidth)
	fmt.Printf("Frames:      %d\n", info.Frames)
	fmt.Printf("Duration:    %s\n", info.Duration())
	return nil
}

// AudioLinkCmd links an audio file into a document.
type AudioLinkCmd struct {
	Path  string `arg:"" help:"Path to .eaf file" type:"existingfile"`
	Audio string `arg:"" help:"Path to audio file" type:"existingfile"`
}

func (c *AudioLinkCmd) Run() error {
	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}
	if err := doc.AddAudio(c.Audio); err != nil {
		return err
	}
	return doc.Save()
}

// ConvertCmd converts between formats. The direction follows from the
// input extension and the --to flag.
type ConvertCmd struct {
	Path  string   `arg:"" help:"Input file (.eaf or .rttm)" type:"existingfile"`
	To    string   `help:"Target format" enum:"eaf,rttm,txt,sqlite" required:""`
	Out   string   `help:"Output path" required:""`
	Audio string   `help:"Audio file to link (rttm to eaf only)"`
	Tiers []string `help:"Only export these tiers (rttm and txt output)"`
}

func (c *ConvertCmd) Run() error {
	if strings.HasSuffix(c.Path, ".rttm") {
		if c.To != "eaf" {
			return fmt.Errorf("rttm input can only convert to eaf, not %s", c.To)
		}
		doc, err := rttm.ToDocument(c.Path, c.Out, c.Audio)
		if err != nil {
			return err
		}
		return doc.Save()
	}

	doc, err := eaf.FromFile(c.Path)
	if err != nil {
		return err
	}

	var filter export.Filter
	if len(c.Tiers) > 0 {
		filter = export.TierFilter(c.Tiers...)
	}

	switch c.To {
	case "eaf":
		return doc.SaveAs(c.Out)
	case "rttm":
		return rttm.WriteFile(c.Out, doc, c.Tiers...)
	case "txt":
		return export.WriteTextFile(c.Out, doc, filter, nil)
	case "sqlite":
		return export.WriteSQLite(context.Background(), c.Out, doc)
	}
	return fmt.Errorf("unsupported target format %s", c.To)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("elan %s (EAF %s)\n", eaf.Version, eaf.FormatVersion)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("elan"),
		kong.Description("ELAN annotation file toolkit"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := logging.LevelInfo
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	format := logging.FormatText
	if CLI.JSONLog {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
