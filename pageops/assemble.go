package pageops

import (
	"fmt"
	"slices"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Object numbers reserved in every output.
const (
	catalogObj = 1
	pagesObj   = 2
)

// assembler copies page object graphs from loaded documents into one new
// output document.
//
// Objects are renumbered depth first in the order they are reached, with
// dictionary keys visited in sorted order, so the output numbering depends
// only on the pages selected and never on map iteration order.
type assembler struct {
	objects []types.Object // object number n is objects[n-1]
	kids    types.Array
	remaps  map[*Document]map[int]int
}

func newAssembler() *assembler {
	a := &assembler{remaps: make(map[*Document]map[int]int)}
	a.reserve() // catalog
	a.reserve() // page tree
	return a
}

func (a *assembler) reserve() int {
	a.objects = append(a.objects, nil)
	return len(a.objects)
}

func ref(n int) types.IndirectRef {
	return *types.NewIndirectRef(n, 0)
}

func (a *assembler) remap(doc *Document) map[int]int {
	remap := a.remaps[doc]
	if remap == nil {
		remap = make(map[int]int)
		a.remaps[doc] = remap
	}
	return remap
}

// reservePage numbers page number of doc in the output before any page
// graph is copied, so links between pages of the same output resolve to
// the copies whichever page comes first. A page selected more than once is
// linked to its first copy.
func (a *assembler) reservePage(doc *Document, number int) (int, error) {
	_, srcRef, _, err := doc.ctx.PageDict(number, false)
	if err != nil {
		return 0, err
	}
	n := a.reserve()
	if srcRef != nil {
		remap := a.remap(doc)
		if _, ok := remap[srcRef.ObjectNumber.Value()]; !ok {
			remap[srcRef.ObjectNumber.Value()] = n
		}
	}
	return n, nil
}

// addPage copies page number of doc into the object n reserved for it.
// The source dictionaries are read only; inherited attributes are made
// explicit on the copy and rotate, if set, replaces the page rotation.
func (a *assembler) addPage(doc *Document, number, n int, rotate *int) error {
	src, _, inh, err := doc.ctx.PageDict(number, false)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("page %d not found", number)
	}
	remap := a.remap(doc)

	pg := types.Dict{}
	for k, v := range src {
		if k != "Parent" {
			pg[k] = v
		}
	}
	if inh != nil {
		if _, ok := pg["MediaBox"]; !ok && inh.MediaBox != nil {
			pg["MediaBox"] = inh.MediaBox.Array()
		}
		if _, ok := pg["CropBox"]; !ok && inh.CropBox != nil {
			pg["CropBox"] = inh.CropBox.Array()
		}
		if _, ok := pg["Resources"]; !ok && inh.Resources != nil {
			pg["Resources"] = inh.Resources
		}
		if _, ok := pg["Rotate"]; !ok && inh.Rotate != 0 {
			pg["Rotate"] = types.Integer(inh.Rotate)
		}
	}
	if rotate != nil {
		if *rotate == 0 {
			delete(pg, "Rotate")
		} else {
			pg["Rotate"] = types.Integer(*rotate)
		}
	}

	copied, err := a.copy(doc, pg, remap)
	if err != nil {
		return err
	}
	d := copied.(types.Dict)
	d["Parent"] = ref(pagesObj)
	a.objects[n-1] = d
	a.kids = append(a.kids, ref(n))
	return nil
}

// copy deep-copies o, migrating every indirect object it reaches.
func (a *assembler) copy(doc *Document, o types.Object, remap map[int]int) (types.Object, error) {
	switch t := o.(type) {
	case types.IndirectRef:
		return a.migrate(doc, t, remap)
	case *types.IndirectRef:
		return a.migrate(doc, *t, remap)
	case types.Dict:
		out := make(types.Dict, len(t))
		for _, k := range sortedKeys(t) {
			v, err := a.copy(doc, t[k], remap)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return completeCoreFont(out), nil
	case types.Array:
		out := make(types.Array, len(t))
		for i, v := range t {
			c, err := a.copy(doc, v, remap)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case types.StreamDict:
		return a.copyStream(doc, t, remap)
	case *types.StreamDict:
		return a.copyStream(doc, *t, remap)
	default:
		return o, nil
	}
}

func (a *assembler) copyStream(doc *Document, sd types.StreamDict, remap map[int]int) (types.Object, error) {
	if sd.Raw == nil && sd.Content != nil {
		if err := sd.Encode(); err != nil {
			return nil, err
		}
	}
	d, err := a.copy(doc, sd.Dict, remap)
	if err != nil {
		return nil, err
	}
	out := sd
	out.Dict = d.(types.Dict)
	out.Dict["Length"] = types.Integer(len(sd.Raw))
	return out, nil
}

// migrate copies the object behind r into the output, once per source
// object. Pages of the output were numbered up front, so a reference to a
// page that reaches this point is to a page outside the output. Those
// references, and references to page tree nodes, become null rather than
// dragging the source page tree along.
func (a *assembler) migrate(doc *Document, r types.IndirectRef, remap map[int]int) (types.Object, error) {
	old := r.ObjectNumber.Value()
	if n, ok := remap[old]; ok {
		return ref(n), nil
	}

	target, err := doc.ctx.Dereference(r)
	if err != nil {
		return nil, err
	}
	if d, ok := target.(types.Dict); ok {
		if typ := d.Type(); typ != nil && (*typ == "Page" || *typ == "Pages") {
			return nil, nil
		}
	}

	n := a.reserve()
	remap[old] = n
	body, err := a.copy(doc, target, remap)
	if err != nil {
		return nil, err
	}
	a.objects[n-1] = body
	return ref(n), nil
}

func sortedKeys(d types.Dict) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// bytes finishes the page tree and serializes the output.
func (a *assembler) bytes() []byte {
	a.objects[catalogObj-1] = types.Dict{
		"Type":  types.Name("Catalog"),
		"Pages": ref(pagesObj),
	}
	a.objects[pagesObj-1] = types.Dict{
		"Type":  types.Name("Pages"),
		"Kids":  a.kids,
		"Count": types.Integer(len(a.kids)),
	}
	return serialize(a.objects)
}
