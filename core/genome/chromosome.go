// core/genome/chromosome.go
package genome

import "strings"

// EnsemblToUCSC converts a bare Ensembl chromosome name to UCSC form.
// Ensembl: 1..22, X, Y, MT. UCSC: chr1..chr22, chrX, chrY, chrM.
func EnsemblToUCSC(chrom string) string {
	if chrom == "MT" {
		return "chrM"
	}
	if strings.HasPrefix(chrom, "chr") {
		return chrom
	}
	return "chr" + chrom
}

// UCSCToEnsembl is the inverse of EnsemblToUCSC.
func UCSCToEnsembl(chrom string) string {
	if chrom == "chrM" {
		return "MT"
	}
	return strings.TrimPrefix(chrom, "chr")
}
