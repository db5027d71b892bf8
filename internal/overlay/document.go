package overlay

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"danmaku/internal/services"
)

// Document is a rendered ASS script.
type Document struct {
	Header string
	Lines  []string
}

// Len returns the number of dialogue lines.
func (d Document) Len() int {
	return len(d.Lines)
}

// String returns the header followed by the dialogue lines joined by newlines.
func (d Document) String() string {
	return d.Header + strings.Join(d.Lines, "\n")
}

// Header returns the script and style preamble for layout.
func Header(l Layout) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("; Script generated by danmaku\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", playResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", playResY)
	b.WriteString("Collisions: Normal\n")
	b.WriteString("WrapStyle: 2\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name,Fontname,Fontsize,PrimaryColour,SecondaryColour,OutlineColour,BackColour,Bold,Italic,Underline,StrikeOut,ScaleX,ScaleY,Spacing,Angle,BorderStyle,Outline,Shadow,Alignment,MarginL,MarginR,MarginV,Encoding\n")
	fmt.Fprintf(&b, "Style: Danmaku,%s,%d,&H00FFFFFF,&H00FFFFFF,&H64000000,&H32000000,0,0,0,0,100,100,0,0,1,2,0,7,20,20,20,1\n", l.FontName, l.FontSize)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer,Start,End,Style,Name,MarginL,MarginR,MarginV,Effect,Text\n")
	return b.String()
}

// ArtifactName returns danmaku-<md5 of videoPath>.ass.
func ArtifactName(videoPath string) string {
	sum := md5.Sum([]byte(videoPath))
	return "danmaku-" + hex.EncodeToString(sum[:]) + ".ass"
}

// WriteArtifact stores doc under profileDir and returns its path. Repeated
// writes for the same video replace the previous file.
func WriteArtifact(profileDir, videoPath string, doc Document) (string, error) {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPersistence, "overlay", "write artifact", "ensure profile directory", err)
	}
	target := filepath.Join(profileDir, ArtifactName(videoPath))

	tmp, err := os.CreateTemp(profileDir, ".danmaku-*.ass")
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "overlay", "write artifact", "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(doc.String()); err != nil {
		tmp.Close()
		return "", services.Wrap(services.ErrPersistence, "overlay", "write artifact", "write", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", services.Wrap(services.ErrPersistence, "overlay", "write artifact", "chmod", err)
	}
	if err := tmp.Close(); err != nil {
		return "", services.Wrap(services.ErrPersistence, "overlay", "write artifact", "close", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", services.Wrap(services.ErrPersistence, "overlay", "write artifact", "rename", err)
	}
	return target, nil
}
