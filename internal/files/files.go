package files

import (
	"archive/zip"
	"bufio"
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mangascout/internal/domain"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"golang.org/x/image/webp"
)

const binSize = 10

func IsValidLocation(location string) error {
	if _, err := os.Stat(location); err != nil {
		return err
	}

	return nil
}

// savedPages returns the pages that made it to disk, in sequence order.
func savedPages(pages []domain.SavedFile) []domain.SavedFile {
	out := make([]domain.SavedFile, 0, len(pages))
	for _, p := range pages {
		if p.OK() {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.SavedFile) int { return a.Index - b.Index })
	return out
}

// CreateCbzArchive writes the saved pages to a zip archive at cbzPath. With
// dropOutliers, pages whose width is far from the most common one are left out,
// which removes banners between long strip pages.
func CreateCbzArchive(pages []domain.SavedFile, cbzPath string, dropOutliers bool) error {
	pages = savedPages(pages)
	if len(pages) == 0 {
		return errors.New("no saved pages to archive")
	}

	if err := os.MkdirAll(filepath.Dir(cbzPath), os.ModePerm); err != nil {
		return errors.Wrap(err, "could not create archive directory")
	}

	cbzFile, err := os.Create(cbzPath)
	if err != nil {
		return errors.Wrap(err, "could not create archive")
	}
	defer cbzFile.Close()

	writeBuf := bufio.NewWriter(cbzFile)
	zipWriter := zip.NewWriter(writeBuf)

	widths := make(map[string]int, len(pages))
	var mostCommonWidth int
	if dropOutliers {
		widthCount := make(map[int]int)
		for _, p := range pages {
			cfg, err := decodeConfig(p.LocalPath)
			if err != nil {
				continue
			}
			widths[p.LocalPath] = cfg.Width
			widthCount[(cfg.Width/binSize)*binSize]++
		}

		maxCount := 0
		for bin, count := range widthCount {
			if count > maxCount || (count == maxCount && bin > mostCommonWidth) {
				maxCount = count
				mostCommonWidth = bin
			}
		}
	}

	for _, p := range pages {
		if w, ok := widths[p.LocalPath]; ok && (w < mostCommonWidth-binSize || w > mostCommonWidth+binSize) {
			continue
		}
		if err := addFileToZip(zipWriter, p.LocalPath, filepath.Base(p.LocalPath)); err != nil {
			return errors.Wrapf(err, "could not add %s", p.LocalPath)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return errors.Wrap(err, "could not finish archive")
	}
	return errors.Wrap(writeBuf.Flush(), "could not write archive")
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(bufio.NewReader(f))
	return cfg, err
}

// CreatePDF writes the saved pages to a pdf at pdfPath, one page per image sized
// to the image. WebP pages are converted to PNG first.
func CreatePDF(pages []domain.SavedFile, pdfPath string) error {
	pages = savedPages(pages)
	if len(pages) == 0 {
		return errors.New("no saved pages to render")
	}

	if err := os.MkdirAll(filepath.Dir(pdfPath), os.ModePerm); err != nil {
		return errors.Wrap(err, "could not create pdf directory")
	}

	pdf := fpdf.New(fpdf.OrientationPortrait, fpdf.UnitMillimeter, "", "")

	for _, p := range pages {
		name := filepath.Base(p.LocalPath)
		opts := fpdf.ImageOptions{ImageType: imageType(p.LocalPath)}

		var info *fpdf.ImageInfoType
		if opts.ImageType == "PNG" && strings.EqualFold(filepath.Ext(p.LocalPath), ".webp") {
			r, err := webpAsPNG(p.LocalPath)
			if err != nil {
				return errors.Wrapf(err, "could not convert %s", p.LocalPath)
			}
			info = pdf.RegisterImageOptionsReader(name, opts, r)
		} else {
			info = pdf.RegisterImageOptions(p.LocalPath, opts)
			name = p.LocalPath
		}
		if !pdf.Ok() {
			return errors.Wrapf(pdf.Error(), "could not read %s", p.LocalPath)
		}

		imgWidth, imgHeight := info.Extent()
		pdf.AddPageFormat(fpdf.OrientationPortrait, fpdf.SizeType{Wd: imgWidth, Ht: imgHeight})
		pdf.ImageOptions(name, 0, 0, imgWidth, imgHeight, false, opts, 0, "")
	}

	return errors.Wrap(pdf.OutputFileAndClose(pdfPath), "could not write pdf")
}

func imageType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	default:
		return "PNG"
	}
}

func webpAsPNG(path string) (io.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := webp.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &buf, nil
}

// addFileToZip adds a single file to the zip archive
func addFileToZip(zipWriter *zip.Writer, filePath, fileName string) error {
	fileToZip, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer fileToZip.Close()

	writer, err := zipWriter.Create(fileName)
	if err != nil {
		return err
	}

	readerBuf := bufio.NewReader(fileToZip)

	_, err = io.Copy(writer, readerBuf)
	return err
}
