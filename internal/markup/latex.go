package markup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/texbuilder/internal/frontmatter"
)

// DefaultDocumentClass is used when neither Options nor frontmatter name one.
const DefaultDocumentClass = "article"

var basePackages = []string{"[utf8]{inputenc}", "[T1]{fontenc}", "{graphicx}"}

// Options shape the generated preamble. Empty fields are filled from the
// Markdown frontmatter (title, author, date, documentclass, packages).
type Options struct {
	DocumentClass string
	Title         string
	Author        string
	Date          string
	Packages      []string
}

var textEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

var urlEscaper = strings.NewReplacer(`%`, `\%`, `#`, `\#`, `\`, `\\`)

// EscapeText escapes LaTeX special characters in plain text.
func EscapeText(s string) string { return textEscaper.Replace(s) }

// ToLaTeX converts a Markdown document, optionally carrying YAML frontmatter,
// into a complete LaTeX document.
func ToLaTeX(src []byte, opts Options) ([]byte, error) {
	meta, body, err := frontmatter.Parse(src)
	if err != nil {
		return nil, err
	}
	opts = opts.merge(meta)

	md := goldmark.New(goldmark.WithRenderer(
		renderer.NewRenderer(renderer.WithNodeRenderers(util.Prioritized(&latexRenderer{}, 100))),
	))
	var content bytes.Buffer
	if err := md.Convert(body, &content); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var out bytes.Buffer
	writePreamble(&out, opts)
	out.WriteString("\\begin{document}\n")
	if opts.Title != "" {
		out.WriteString("\\maketitle\n")
	}
	out.WriteString("\n")
	out.Write(bytes.TrimRight(content.Bytes(), "\n"))
	out.WriteString("\n\n\\end{document}\n")
	return out.Bytes(), nil
}

func (o Options) merge(meta frontmatter.Metadata) Options {
	if o.DocumentClass == "" {
		o.DocumentClass = meta.DocumentClass
	}
	if o.DocumentClass == "" {
		o.DocumentClass = DefaultDocumentClass
	}
	if o.Title == "" {
		o.Title = meta.Title
	}
	if o.Author == "" {
		o.Author = meta.Author
	}
	if o.Date == "" {
		o.Date = meta.Date
	}
	seen := make(map[string]bool, len(o.Packages)+len(meta.Packages))
	pkgs := make([]string, 0, len(o.Packages)+len(meta.Packages))
	for _, p := range append(append([]string{}, o.Packages...), meta.Packages...) {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		pkgs = append(pkgs, p)
	}
	o.Packages = pkgs
	return o
}

func writePreamble(out *bytes.Buffer, opts Options) {
	fmt.Fprintf(out, "\\documentclass{%s}\n", opts.DocumentClass)
	for _, p := range basePackages {
		fmt.Fprintf(out, "\\usepackage%s\n", p)
	}
	for _, p := range opts.Packages {
		fmt.Fprintf(out, "\\usepackage{%s}\n", p)
	}
	// hyperref goes last.
	out.WriteString("\\usepackage{hyperref}\n")
	if opts.Title != "" {
		fmt.Fprintf(out, "\\title{%s}\n", EscapeText(opts.Title))
		fmt.Fprintf(out, "\\author{%s}\n", EscapeText(opts.Author))
		if opts.Date != "" {
			fmt.Fprintf(out, "\\date{%s}\n", EscapeText(opts.Date))
		}
	}
}

var sectioning = []string{"section", "subsection", "subsubsection", "paragraph", "subparagraph"}

// latexRenderer emits LaTeX for the CommonMark node set. Kinds without a
// registered function (HTML) are walked without output.
type latexRenderer struct{}

func (r *latexRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindDocument, r.renderNoop)
	reg.Register(gmast.KindHeading, r.renderHeading)
	reg.Register(gmast.KindParagraph, r.renderParagraph)
	reg.Register(gmast.KindTextBlock, r.renderTextBlock)
	reg.Register(gmast.KindText, r.renderText)
	reg.Register(gmast.KindString, r.renderString)
	reg.Register(gmast.KindEmphasis, r.renderEmphasis)
	reg.Register(gmast.KindCodeSpan, r.renderCodeSpan)
	reg.Register(gmast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(gmast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(gmast.KindList, r.renderList)
	reg.Register(gmast.KindListItem, r.renderListItem)
	reg.Register(gmast.KindBlockquote, r.renderBlockquote)
	reg.Register(gmast.KindLink, r.renderLink)
	reg.Register(gmast.KindAutoLink, r.renderAutoLink)
	reg.Register(gmast.KindImage, r.renderImage)
	reg.Register(gmast.KindThematicBreak, r.renderThematicBreak)
	reg.Register(gmast.KindHTMLBlock, r.renderSkip)
	reg.Register(gmast.KindRawHTML, r.renderSkip)
}

func (r *latexRenderer) renderNoop(util.BufWriter, []byte, gmast.Node, bool) (gmast.WalkStatus, error) {
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderSkip(util.BufWriter, []byte, gmast.Node, bool) (gmast.WalkStatus, error) {
	return gmast.WalkSkipChildren, nil
}

func (r *latexRenderer) renderHeading(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("}\n\n")
		return gmast.WalkContinue, nil
	}
	level := node.(*gmast.Heading).Level
	if level > len(sectioning) {
		level = len(sectioning)
	}
	_, _ = w.WriteString("\\" + sectioning[level-1] + "{")
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderParagraph(w util.BufWriter, _ []byte, _ gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n\n")
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderTextBlock(w util.BufWriter, _ []byte, _ gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n")
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderText(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.Text)
	_, _ = w.WriteString(EscapeText(string(n.Segment.Value(source))))
	switch {
	case n.HardLineBreak():
		_, _ = w.WriteString("\\\\\n")
	case n.SoftLineBreak():
		_ = w.WriteByte('\n')
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderString(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(EscapeText(string(node.(*gmast.String).Value)))
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderEmphasis(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		_ = w.WriteByte('}')
		return gmast.WalkContinue, nil
	}
	if node.(*gmast.Emphasis).Level >= 2 {
		_, _ = w.WriteString("\\textbf{")
	} else {
		_, _ = w.WriteString("\\emph{")
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderCodeSpan(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	_, _ = w.WriteString("\\texttt{")
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *gmast.Text:
			_, _ = w.WriteString(EscapeText(strings.ReplaceAll(string(t.Segment.Value(source)), "\n", " ")))
		case *gmast.String:
			_, _ = w.WriteString(EscapeText(string(t.Value)))
		}
	}
	_ = w.WriteByte('}')
	return gmast.WalkSkipChildren, nil
}

func (r *latexRenderer) renderCodeBlock(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	_, _ = w.WriteString("\\begin{verbatim}\n")
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.Write(line.Value(source))
	}
	_, _ = w.WriteString("\\end{verbatim}\n\n")
	return gmast.WalkSkipChildren, nil
}

func (r *latexRenderer) renderList(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	env := "itemize"
	if node.(*gmast.List).IsOrdered() {
		env = "enumerate"
	}
	if entering {
		_, _ = w.WriteString("\\begin{" + env + "}\n")
	} else {
		_, _ = w.WriteString("\\end{" + env + "}\n\n")
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderListItem(w util.BufWriter, _ []byte, _ gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("\\item ")
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderBlockquote(w util.BufWriter, _ []byte, _ gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("\\begin{quote}\n")
	} else {
		_, _ = w.WriteString("\\end{quote}\n\n")
	}
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderLink(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		_ = w.WriteByte('}')
		return gmast.WalkContinue, nil
	}
	dest := string(node.(*gmast.Link).Destination)
	_, _ = w.WriteString("\\href{" + urlEscaper.Replace(dest) + "}{")
	return gmast.WalkContinue, nil
}

func (r *latexRenderer) renderAutoLink(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.AutoLink)
	url := string(n.URL(source))
	if n.AutoLinkType == gmast.AutoLinkEmail {
		_, _ = w.WriteString("\\href{mailto:" + urlEscaper.Replace(url) + "}{" + EscapeText(url) + "}")
		return gmast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString("\\url{" + urlEscaper.Replace(url) + "}")
	return gmast.WalkSkipChildren, nil
}

func (r *latexRenderer) renderImage(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	dest := string(node.(*gmast.Image).Destination)
	_, _ = w.WriteString("\\includegraphics[width=\\linewidth]{" + dest + "}")
	return gmast.WalkSkipChildren, nil
}

func (r *latexRenderer) renderThematicBreak(w util.BufWriter, _ []byte, _ gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("\\medskip\\hrule\\medskip\n\n")
	}
	return gmast.WalkContinue, nil
}
