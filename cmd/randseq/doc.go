// 31 July 2020

/*
Randseq makes random ortholog data sets for testing supermat.
Usage:

	randseq [options] dir ngroup length

writes one proteome per taxon and a table of ngroup ortholog groups
into dir. Each group starts from a random sequence of the given length
and every taxon gets a copy with some residues changed and a few lost.

Flags:

	-x
		comma separated taxon names (default takin,buffalo,yak)
	-m
		chance a taxon has no member in a group
	-p
		chance a taxon has two members in a group
	-u
		chance each residue in a copy is changed
	-n
		number of genes per proteome that belong to no group
	-w
		scatter spaces and newlines through the sequences, for
		exercising the fasta reader
	-r
		random number seed

The content is not biologically meaningful. We are interested in
benchmarking and in having groups that the filter keeps and drops.
*/
package main
