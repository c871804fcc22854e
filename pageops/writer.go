package pageops

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const producer = "pdfcompose"

// serialize writes objects as a PDF 1.7 file with a classic xref table.
// Object n is objects[n-1]; object 1 is the catalog. The file ID is
// derived from the body, so the output is a pure function of objects.
func serialize(objects []types.Object) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	info := types.Dict{"Producer": types.StringLiteral(producer)}
	objects = append(objects, info)
	infoObj := len(objects)

	offsets := make([]int, len(objects))
	for i, o := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, o)
		buf.WriteString("\nendobj\n")
	}

	sum := md5.Sum(buf.Bytes())
	id := strings.ToUpper(hex.EncodeToString(sum[:]))

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root %d 0 R/Info %d 0 R/ID[<%s><%s>]>>\n",
		len(objects)+1, catalogObj, infoObj, id, id)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func writeObject(buf *bytes.Buffer, o types.Object) {
	switch t := o.(type) {
	case nil:
		buf.WriteString("null")
	case types.Dict:
		writeDict(buf, t)
	case types.Array:
		buf.WriteByte('[')
		for i, v := range t {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, v)
		}
		buf.WriteByte(']')
	case types.StreamDict:
		writeDict(buf, t.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(t.Raw)
		buf.WriteString("\nendstream")
	case types.IndirectRef:
		fmt.Fprintf(buf, "%d %d R", t.ObjectNumber.Value(), t.GenerationNumber.Value())
	default:
		buf.WriteString(o.PDFString())
	}
}

func writeDict(buf *bytes.Buffer, d types.Dict) {
	buf.WriteString("<<")
	for _, k := range sortedKeys(d) {
		buf.WriteString(types.Name(k).PDFString())
		buf.WriteByte(' ')
		writeObject(buf, d[k])
	}
	buf.WriteString(">>")
}
