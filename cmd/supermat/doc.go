// 13 Oct 2026

/*
Supermat builds a concatenated alignment (supermatrix) of single copy
orthologs for phylogenetic inference.

Usage:

	supermat [flags] [table [taxon=proteome ...]]

The table is tab separated, as written by proteinortho or in the form

	group_id  connectivity  member_count  taxon_1 ... taxon_n

Rows where some taxon has no gene ("*", "nan", "NA", "-" or nothing) or
more than one ("g1,g2") are dropped. For the rest, each taxon's gene is
looked up in its proteome and the sequences written to
group_fastas/group_<id>.fasta with labels <id>_<taxon>. mafft
--anysymbol --auto aligns each group, the result goes to
aligned_fastas/group_<id>_aligned.fasta and the aligned rows are found
again by label. Groups that fail at any of these steps are left out and
reported. The rest are concatenated in table order, one record per
taxon.

A configuration file (-c) holds anything the flags do not:

	taxa:
	  - {name: takin, proteome: takin_proteins.fasta}
	  - {name: buffalo, proteome: water_buffalo_proteins.fasta.gz}
	  - {name: yak, proteome: wild_yak_proteins.fasta}
	table: three_species.proteinortho.tsv
	aligner: {command: mafft, args: [--anysymbol, --auto], timeout: 30m}
	artifacts: {driver: s3, bucket: my-runs, root: run1}
	partitions: partitions.txt

Proteomes and tables may be gzipped.
*/
package main
