package mapgen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"
)

const mappingPkg = "github.com/syssam/quarry/mapping"

// Header is the first line of every generated file.
const Header = "Code generated by quarry. DO NOT EDIT."

// Generate builds the mapping file of f: an init function registering one
// precompiled mapper per struct.
func Generate(f *File) *jen.File {
	out := jen.NewFile(f.Package)
	out.HeaderComment(Header)
	out.ImportName(mappingPkg, "mapping")
	out.Func().Id("init").BlockFunc(func(grp *jen.Group) {
		for _, s := range f.Structs {
			grp.Qual(mappingPkg, "Register").Call(genMapper(s))
		}
	})
	return out
}

// genMapper generates the row function of s. Columns are bound in field
// declaration order with mapping.Bind, the same order and conversions the
// reflective fallback uses. A failed bind returns the zero value.
func genMapper(s *Struct) jen.Code {
	return jen.Func().
		Params(jen.Id("r").Qual(mappingPkg, "Row")).
		Params(jen.Id(s.Name), jen.Error()).
		BlockFunc(func(grp *jen.Group) {
			grp.Var().Id("e").Id(s.Name)
			for _, f := range s.Fields {
				grp.If(
					jen.Err().Op(":=").Qual(mappingPkg, "Bind").Call(
						jen.Id("r"),
						jen.Lit(f.Column),
						jen.Op("&").Add(selector(f)),
					),
					jen.Err().Op("!=").Nil(),
				).Block(jen.Return(jen.Id(s.Name).Values(), jen.Err()))
			}
			grp.Return(jen.Id("e"), jen.Nil())
		})
}

// Format renders the generated file and formats it with goimports. On
// failure the unformatted source is returned alongside the error.
func Format(path string, f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("mapgen: render %s: %w", path, err)
	}
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return buf.Bytes(), fmt.Errorf("mapgen: format %s: %w", path, err)
	}
	return formatted, nil
}

func selector(f *Field) *jen.Statement {
	s := jen.Id("e")
	for _, name := range f.Path {
		s = s.Dot(name)
	}
	return s
}
