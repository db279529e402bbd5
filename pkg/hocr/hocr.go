// Package hocr reads hOCR documents, the HTML based format Tesseract and
// other engines use for OCR output, into the menu OCR model.
//
// The hOCR hierarchy is Page → Area → Paragraph → Line → Word. Only pages,
// lines and words matter for scoring, so areas and paragraphs are walked
// through without being kept. Line-level classes are:
//
// - ocr_line: a regular text line
// - ocr_header: a heading line
// - ocr_caption: a caption below a figure
// - ocr_textfloat: floating text outside the main flow
//
// Coordinates in hOCR are axis-aligned pixel rectangles ("bbox x1 y1 x2 y2")
// with the origin in the top-left corner; they are expanded to four corners
// and pages get menu.UnitPixel.
package hocr
