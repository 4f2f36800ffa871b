// Package objfile is the default object-file oracle: it resolves function
// entry addresses to symbol names across ELF, Mach-O, and PE containers by
// probing each format in turn (grounded on a PE/ELF obj-probe pattern
// from the example pack, extended here with a Mach-O prober for format parity with the
// Rust crate's format-agnostic `object` dependency).
package objfile

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"

	"github.com/volexity/gographer/pkg/disasm"
)

// Oracle implements disasm.SymbolTable over the three container formats
// the default decoder oracle understands.
type Oracle struct{}

// Symbols returns symbol addresses mapped to their names: STT_FUNC
// symbols for ELF, symbols in code sections for PE, and every named
// symbol defined in a section for Mach-O. Unsupported containers yield disasm.ErrUnsupportedBinaryFormat so
// callers can distinguish "not our problem" from a real parse failure.
func (Oracle) Symbols(raw []byte) (map[uint64]string, error) {
	r := bytes.NewReader(raw)

	if f, err := elf.NewFile(r); err == nil {
		return elfSymbols(f)
	}
	if f, err := macho.NewFile(r); err == nil {
		return machoSymbols(f)
	}
	if f, err := pe.NewFile(r); err == nil {
		return peSymbols(f)
	}

	return nil, disasm.ErrUnsupportedBinaryFormat
}

func elfSymbols(f *elf.File) (map[uint64]string, error) {
	syms, err := f.Symbols()
	if err != nil {
		// No symbol table (e.g. a stripped binary) is not fatal here.
		return map[uint64]string{}, nil
	}

	out := make(map[uint64]string, len(syms))
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Name == "" {
			continue
		}
		out[s.Value] = s.Name
	}
	return out, nil
}

func machoSymbols(f *macho.File) (map[uint64]string, error) {
	out := map[uint64]string{}
	if f.Symtab == nil {
		return out, nil
	}
	for _, s := range f.Symtab.Syms {
		if s.Name == "" || s.Sect == 0 {
			continue
		}
		out[s.Value] = s.Name
	}
	return out, nil
}

// Text returns the base virtual address and raw bytes of the executable
// section the default decoder oracle should linear-sweep. Like Symbols,
// it probes each container format in turn.
func (Oracle) Text(raw []byte) (uint64, []byte, error) {
	r := bytes.NewReader(raw)

	if f, err := elf.NewFile(r); err == nil {
		return elfText(f)
	}
	if f, err := macho.NewFile(r); err == nil {
		return machoText(f)
	}
	if f, err := pe.NewFile(r); err == nil {
		return peText(f)
	}

	return 0, nil, disasm.ErrUnsupportedBinaryFormat
}

func elfText(f *elf.File) (uint64, []byte, error) {
	for _, sect := range f.Sections {
		if sect.Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}
		data, err := sect.Data()
		if err != nil {
			return 0, nil, err
		}
		return sect.Addr, data, nil
	}
	return 0, nil, nil
}

func machoText(f *macho.File) (uint64, []byte, error) {
	sect := f.Section("__text")
	if sect == nil {
		return 0, nil, nil
	}
	data, err := sect.Data()
	if err != nil {
		return 0, nil, err
	}
	return sect.Addr, data, nil
}

func peText(f *pe.File) (uint64, []byte, error) {
	var imageBase uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		imageBase = oh.ImageBase
	}

	const imageSCNCntCode = 0x20
	for _, sect := range f.Sections {
		if sect.Characteristics&imageSCNCntCode == 0 {
			continue
		}
		data, err := sect.Data()
		if err != nil {
			return 0, nil, err
		}
		return imageBase + uint64(sect.VirtualAddress), data, nil
	}
	return 0, nil, nil
}

func peSymbols(f *pe.File) (map[uint64]string, error) {
	var imageBase uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		imageBase = oh.ImageBase
	}

	out := make(map[uint64]string, len(f.Symbols))
	for _, s := range f.Symbols {
		if s.SectionNumber <= 0 || int(s.SectionNumber) > len(f.Sections) || s.Name == "" {
			continue
		}
		sect := f.Sections[s.SectionNumber-1]
		const imageSCNCntCode = 0x20
		if sect.Characteristics&imageSCNCntCode == 0 {
			continue
		}
		out[imageBase+uint64(sect.VirtualAddress)+uint64(s.Value)] = s.Name
	}
	return out, nil
}
