package markup

import "regexp"

type kind int

const (
	literal kind = iota
	fence
	code
	link
	bold
	italic
	strike
)

func (k kind) delimiter() byte {
	switch k {
	case bold:
		return '*'
	case italic:
		return '_'
	case strike:
		return '~'
	}
	return 0
}

// node is either a run of literal text or a recognised span. Fences, code
// spans and links are leaves; emphasis spans hold children.
type node struct {
	kind     kind
	text     string
	url      string
	children []node
}

// emphasis lists the span kinds that may wrap other spans, in the order they
// are recognised.
var emphasis = []kind{bold, italic, strike}

// parse splits s into spans. Each stage only looks at text the earlier
// stages left as literal, so a later construct can contain an earlier one
// but the two never overlap.
func parse(s string) []node {
	nodes := []node{{kind: literal, text: s}}
	nodes = extract(nodes, fencePattern, func(m []string) node {
		return node{kind: fence, text: m[1]}
	})
	nodes = extract(nodes, codePattern, func(m []string) node {
		return node{kind: code, text: m[1]}
	})
	nodes = extract(nodes, linkPattern, func(m []string) node {
		return node{kind: link, text: m[1], url: m[2]}
	})
	for _, k := range emphasis {
		nodes = wrap(nodes, k)
	}
	return nodes
}

// extract replaces every match of re inside literal nodes with the node
// built by mk.
func extract(nodes []node, re *regexp.Regexp, mk func(m []string) node) []node {
	var out nodeList
	for _, n := range nodes {
		if n.kind != literal {
			out.add(n)
			continue
		}
		last := 0
		for _, loc := range re.FindAllStringSubmatchIndex(n.text, -1) {
			out.addText(n.text[last:loc[0]])
			m := make([]string, len(loc)/2)
			for i := range m {
				if loc[2*i] >= 0 {
					m[i] = n.text[loc[2*i]:loc[2*i+1]]
				}
			}
			out.add(mk(m))
			last = loc[1]
		}
		out.addText(n.text[last:])
	}
	return out
}

type mark struct {
	node int
	off  int
}

// wrap pairs up the delimiters of k across the literal nodes of one level and
// turns each pair into a span. A pair needs at least one character or span
// between its delimiters. Emphasis spans built earlier are searched too.
func wrap(nodes []node, k kind) []node {
	for i := range nodes {
		if nodes[i].children != nil {
			nodes[i].children = wrap(nodes[i].children, k)
		}
	}

	d := k.delimiter()
	var marks []mark
	for i, n := range nodes {
		if n.kind != literal {
			continue
		}
		for j := 0; j < len(n.text); j++ {
			if n.text[j] == d {
				marks = append(marks, mark{node: i, off: j})
			}
		}
	}

	var pairs [][2]mark
	for i := 0; i+1 < len(marks); {
		open, closing := marks[i], marks[i+1]
		if adjacent(nodes, open, closing) {
			i++
			continue
		}
		pairs = append(pairs, [2]mark{open, closing})
		i += 2
	}
	if len(pairs) == 0 {
		return nodes
	}

	var top, inner nodeList
	cur := &top
	p, side := 0, 0
	for i, n := range nodes {
		if n.kind != literal {
			cur.add(n)
			continue
		}
		from := 0
		for p < len(pairs) && pairs[p][side].node == i {
			at := pairs[p][side].off
			cur.addText(n.text[from:at])
			from = at + 1
			if side == 0 {
				cur = &inner
				side = 1
				continue
			}
			top.add(node{kind: k, children: inner})
			inner = nil
			cur = &top
			side = 0
			p++
		}
		cur.addText(n.text[from:])
	}
	return top
}

// adjacent reports whether nothing separates the two delimiter marks.
func adjacent(nodes []node, a, b mark) bool {
	if a.node == b.node {
		return b.off == a.off+1
	}
	return b.node == a.node+1 && a.off == len(nodes[a.node].text)-1 && b.off == 0
}

// nodeList merges consecutive literal text and skips empty runs.
type nodeList []node

func (l *nodeList) addText(s string) {
	if s == "" {
		return
	}
	if n := len(*l); n > 0 && (*l)[n-1].kind == literal {
		(*l)[n-1].text += s
		return
	}
	*l = append(*l, node{kind: literal, text: s})
}

func (l *nodeList) add(n node) {
	if n.kind == literal {
		l.addText(n.text)
		return
	}
	*l = append(*l, n)
}
