package sqlgen

// Cascade is the ordered sequence of repair stages from spec.md
// §4.D.3. Each stage is pure, total, and individually idempotent.
var Cascade = []Stage{
	{Name: "dialect_normalise", Transform: stageDialectNormalise},
	{Name: "strip_own_db_prefix", Transform: stageStripOwnDBPrefix},
	{Name: "repair_cross_db_references", Transform: stageRepairCrossDBReferences},
	{Name: "remove_invalid_subqueries", Transform: stageRemoveInvalidSubqueries},
	{Name: "remove_invalid_joins", Transform: stageRemoveInvalidJoins},
	{Name: "repair_undefined_aliases", Transform: stageRepairUndefinedAliases},
	{Name: "fix_empty_select_list", Transform: stageFixEmptySelectList},
	{Name: "substitute_mapping_column", Transform: stageSubstituteMappingColumn},
	{Name: "repair_concatenated_identifiers", Transform: stageRepairConcatenatedIdentifiers},
	{Name: "column_used_as_function", Transform: stageColumnUsedAsFunction},
	{Name: "replace_invalid_column_references", Transform: stageReplaceInvalidColumnReferences},
	{Name: "aggregate_arg_repair", Transform: stageAggregateArgRepair},
	{Name: "group_by_closure", Transform: stageGroupByClosure},
	{Name: "remove_invalid_columns", Transform: stageRemoveInvalidColumns},
	{Name: "order_by_repair", Transform: stageOrderByRepair},
	{Name: "add_missing_mapping_joins", Transform: stageAddMissingMappingJoins},
	{Name: "inject_missing_mapping_columns", Transform: stageInjectMissingMappingColumns},
	{Name: "inject_descriptive_columns", Transform: stageInjectDescriptiveColumns},
	{Name: "disambiguate_columns", Transform: stageDisambiguateColumns},
	{Name: "dialect_post_pass", Transform: stageDialectPostPass},
}

// RunCascade applies every stage in order and returns the final SQL.
func RunCascade(ctx StageContext, sql string) string {
	for _, stage := range Cascade {
		sql = stage.Transform(ctx, sql)
	}
	return sql
}
