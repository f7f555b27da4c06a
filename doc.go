/*
Package srisheets publishes the SRI "Contribuyentes autorizados de oficio comprobantes
electrónicos" datasets as a single Google Sheets spreadsheet.

sri-sheets is intended to be run from a scheduled job. Each run discovers the CSV datasets
listed on the SRI datasets page, merges them into one deduplicated table and replaces the
contents of the first worksheet of the published spreadsheet.

sri-sheets supports the following commands:

  - run, to download, merge and publish the datasets (optionally archiving the merged table
    to a Cloud Storage bucket)
  - get, to download the published worksheet as a TSV file
  - put, to republish an archived dataset file
  - version, to display the current version
*/
package srisheets
